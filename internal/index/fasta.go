package index

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// LoadFasta reads a FASTA file into the concatenated reference text T
// and its span table. Records are separated by Sep; bases are upper-cased
// and anything outside ACGT becomes 'N'.
func LoadFasta(path string) (*Reference, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	ref := &Reference{}
	var t bytes.Buffer
	var name string
	var start int64

	flush := func() {
		if name == "" {
			return
		}
		ref.Spans = append(ref.Spans, RefSpan{
			Name: name,
			Off:  start,
			Len:  int64(t.Len()) - start,
		})
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			if t.Len() > 0 {
				t.WriteByte(Sep)
			}
			fields := strings.Fields(line[1:])
			if len(fields) == 0 {
				return nil, nil, fmt.Errorf("fasta %s: empty record name", path)
			}
			name = fields[0]
			start = int64(t.Len())
			continue
		}
		if name == "" {
			return nil, nil, fmt.Errorf("fasta %s: sequence before header", path)
		}
		for i := 0; i < len(line); i++ {
			t.WriteByte(normBase(line[i]))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	flush()
	if len(ref.Spans) == 0 {
		return nil, nil, fmt.Errorf("fasta %s: no records", path)
	}
	ref.TLen = int64(t.Len())
	return ref, t.Bytes(), nil
}

func normBase(b byte) byte {
	switch b {
	case 'a':
		return 'A'
	case 'c':
		return 'C'
	case 'g':
		return 'G'
	case 't':
		return 'T'
	case 'A', 'C', 'G', 'T':
		return b
	default:
		return 'N'
	}
}
