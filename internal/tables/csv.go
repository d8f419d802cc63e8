package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/sigma/internal/ir"
)

// Data is what one or more CSV files contribute to a compilation context.
type Data struct {
	Sets   []*ir.IndexSet
	Tables []*ir.DataTable
}

// Options configures Read.
type Options struct {
	// Keys is the number of leading key columns, 1 or 2. Zero means 1.
	Keys int
	// Source names the input in errors.
	Source string
}

// ReadFile reads one CSV file.
func ReadFile(path string, opts Options) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if opts.Source == "" {
		opts.Source = filepath.Base(path)
	}
	return Read(f, opts)
}

// Read parses CSV from r.
func Read(r io.Reader, opts Options) (*Data, error) {
	keys := opts.Keys
	if keys == 0 {
		keys = 1
	}
	if keys != 1 && keys != 2 {
		return nil, fmt.Errorf("%s: key columns must be 1 or 2, got %d", opts.Source, keys)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", opts.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Source, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if header[i] == "" {
			return nil, fmt.Errorf("%s: column %d has no header", opts.Source, i+1)
		}
	}
	if len(header) < keys {
		return nil, fmt.Errorf("%s: need %d key columns, file has %d", opts.Source, keys, len(header))
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("%s: duplicate column %q", opts.Source, h)
		}
		seen[h] = true
	}

	keyElems := make([][]ir.Index, keys)
	keySeen := make([]map[ir.Index]bool, keys)
	for k := range keySeen {
		keySeen[k] = make(map[ir.Index]bool)
	}
	rowSeen := make(map[string]int)
	entries := make([][]ir.TableEntry, len(header)-keys)

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Source, err)
		}
		key := make(ir.Tuple, keys)
		for k := 0; k < keys; k++ {
			raw := strings.TrimSpace(rec[k])
			if raw == "" {
				return nil, fmt.Errorf("%s: line %d: empty key in column %q", opts.Source, line, header[k])
			}
			x := ir.ParseIndex(raw)
			key[k] = x
			if !keySeen[k][x] {
				keySeen[k][x] = true
				keyElems[k] = append(keyElems[k], x)
			}
		}
		if prev, dup := rowSeen[key.Key()]; dup {
			return nil, fmt.Errorf("%s: line %d: key %s already used on line %d", opts.Source, line, key, prev)
		}
		rowSeen[key.Key()] = line
		for c := keys; c < len(rec); c++ {
			if v := ParseCell(rec[c]); v != nil {
				entries[c-keys] = append(entries[c-keys], ir.TableEntry{Key: key, Value: v})
			}
		}
	}

	data := &Data{}
	for k := 0; k < keys; k++ {
		set, err := ir.NewIndexSet(header[k], keyElems[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Source, err)
		}
		data.Sets = append(data.Sets, set)
	}
	for c, col := range entries {
		t, err := ir.NewDataTable(header[keys+c], keys, col)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Source, err)
		}
		data.Tables = append(data.Tables, t)
	}
	return data, nil
}

// Merge combines several inputs. A set may appear in more than one input
// (files sharing a key column) as long as every copy has the same
// elements; the first copy's order wins. Tables must be unique.
func Merge(parts ...*Data) (*Data, error) {
	out := &Data{}
	sets := make(map[string]*ir.IndexSet)
	tables := make(map[string]bool)
	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, s := range p.Sets {
			prev, ok := sets[s.Name()]
			if !ok {
				sets[s.Name()] = s
				out.Sets = append(out.Sets, s)
				continue
			}
			if !sameElements(prev, s) {
				return nil, fmt.Errorf("set %s defined twice with different elements", s.Name())
			}
		}
		for _, t := range p.Tables {
			if tables[t.Name()] {
				return nil, fmt.Errorf("table %s defined twice", t.Name())
			}
			tables[t.Name()] = true
			out.Tables = append(out.Tables, t)
		}
	}
	return out, nil
}

func sameElements(a, b *ir.IndexSet) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, x := range b.Elements() {
		if !a.Contains(x) {
			return false
		}
	}
	return true
}
