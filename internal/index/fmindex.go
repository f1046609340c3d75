package index

import (
	"fmt"
	"os"

	"github.com/vtphan/fmi"
	"gopkg.in/yaml.v3"
)

// FMIndex adapts the vtphan/fmi uncompressed FM index to the Searcher
// interface. The fmi package keeps its occurrence tables in exported
// fields; one backward-extension step is
//
//	sp' = C[c] + OCC[c][sp-1]
//	ep' = C[c] + OCC[c][ep] - 1
//
// The adapter only reads the index, so it is safe for concurrent
// queries from multiple channel workers.
type FMIndex struct {
	idx *fmi.Index
}

// Wrap adapts a loaded fmi.Index.
func Wrap(idx *fmi.Index) *FMIndex {
	return &FMIndex{idx: idx}
}

// SymbolRange returns the suffix range of a single symbol.
func (f *FMIndex) SymbolRange(sym byte) Range {
	sp, ok := f.idx.C[sym]
	if !ok {
		return Empty
	}
	return Range{Start: int64(sp), End: int64(f.idx.EP[sym])}
}

// Next narrows r to the suffixes preceded by sym.
func (f *FMIndex) Next(r Range, sym byte) Range {
	if !r.Valid() {
		return Empty
	}
	off, ok := f.idx.C[sym]
	if !ok {
		return Empty
	}
	occ := f.idx.OCC[sym]
	var before int
	if r.Start > 0 {
		before = occ[r.Start-1]
	}
	sp := int64(off + before)
	ep := int64(off+occ[r.End]) - 1
	if sp > ep {
		return Empty
	}
	return Range{Start: sp, End: ep}
}

// SubRange runs a full backward search for pattern in genome order.
func (f *FMIndex) SubRange(pattern []byte) Range {
	return Fold(f, pattern)
}

// Locate resolves up to max suffix-array positions inside r.
func (f *FMIndex) Locate(r Range, max int) []int64 {
	if !r.Valid() || max <= 0 {
		return nil
	}
	n := r.Length()
	if n > int64(max) {
		n = int64(max)
	}
	out := make([]int64, 0, n)
	for i := r.Start; i < r.Start+n; i++ {
		out = append(out, int64(f.idx.SA[i]))
	}
	return out
}

// TextLen returns the length of the indexed text.
func (f *FMIndex) TextLen() int64 {
	return int64(f.idx.LEN)
}

// Build constructs the FM index and reference table for a FASTA file and
// saves both under prefix. Three artifacts are written:
//
//	prefix.seq        the transformed index text (reverse + complement)
//	prefix.seq.index  the serialized FM index
//	prefix.refs       the reference span table (YAML)
func Build(fastaPath, prefix string) (*Reference, error) {
	ref, t, err := LoadFasta(fastaPath)
	if err != nil {
		return nil, err
	}
	seqPath := prefix + ".seq"
	if err := os.WriteFile(seqPath, IndexText(t), 0o644); err != nil {
		return nil, fmt.Errorf("write index text: %w", err)
	}
	idx := fmi.New(seqPath)
	idx.Save(seqPath)
	data, err := yaml.Marshal(ref)
	if err != nil {
		return nil, fmt.Errorf("marshal reference table: %w", err)
	}
	if err := os.WriteFile(prefix+".refs", data, 0o644); err != nil {
		return nil, fmt.Errorf("write reference table: %w", err)
	}
	return ref, nil
}

// Load opens an index previously written by Build.
func Load(prefix string) (*FMIndex, *Reference, error) {
	data, err := os.ReadFile(prefix + ".refs")
	if err != nil {
		return nil, nil, fmt.Errorf("read reference table: %w", err)
	}
	ref := &Reference{}
	if err := yaml.Unmarshal(data, ref); err != nil {
		return nil, nil, fmt.Errorf("parse reference table: %w", err)
	}
	idx := fmi.Load(prefix + ".seq.index")
	return Wrap(idx), ref, nil
}
