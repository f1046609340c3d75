package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileTrace is one recorded signal trace: a text file holding one raw
// sample per line. It implements the trace reader the mapper consumes.
type FileTrace struct {
	path   string
	number uint32
}

// Name returns the trace name (the file base name without extension).
func (t *FileTrace) Name() string {
	base := filepath.Base(t.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Number returns the read number assigned at discovery.
func (t *FileTrace) Number() uint32 { return t.number }

// Samples reads the whole trace into memory.
func (t *FileTrace) Samples() ([]float32, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []float32
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad sample %q: %w", t.path, line, s, err)
		}
		out = append(out, float32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	return out, nil
}

// collectTraces expands the command arguments into traces. Directory
// arguments are scanned one level deep for regular files; read numbers
// are assigned in discovery order starting at 1.
func collectTraces(args []string) ([]*FileTrace, error) {
	var traces []*FileTrace
	number := uint32(0)
	add := func(path string) {
		number++
		traces = append(traces, &FileTrace{path: path, number: number})
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			add(filepath.Join(arg, e.Name()))
		}
	}
	if len(traces) == 0 {
		return nil, fmt.Errorf("no trace files found")
	}
	return traces, nil
}
