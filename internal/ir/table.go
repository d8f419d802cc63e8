package ir

import "fmt"

// TableEntry is one row of a data table.
type TableEntry struct {
	Key   Tuple
	Value Value
}

// DataTable maps one or two index values to a cell value.
// It is immutable after construction.
type DataTable struct {
	name    string
	arity   int
	entries []TableEntry
	byKey   map[string]int
}

// NewDataTable builds a table of the given arity (1 or 2), rejecting
// duplicate keys and keys of the wrong length.
func NewDataTable(name string, arity int, entries []TableEntry) (*DataTable, error) {
	if name == "" {
		return nil, fmt.Errorf("data table name is required")
	}
	if arity != 1 && arity != 2 {
		return nil, fmt.Errorf("data table %s: arity must be 1 or 2, got %d", name, arity)
	}
	t := &DataTable{
		name:    name,
		arity:   arity,
		entries: make([]TableEntry, 0, len(entries)),
		byKey:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if len(e.Key) != arity {
			return nil, fmt.Errorf("data table %s: key %s has %d indices, want %d", name, e.Key, len(e.Key), arity)
		}
		if e.Value == nil {
			return nil, fmt.Errorf("data table %s: key %s has no value", name, e.Key)
		}
		k := e.Key.Key()
		if _, dup := t.byKey[k]; dup {
			return nil, fmt.Errorf("data table %s: duplicate key %s", name, e.Key)
		}
		t.byKey[k] = len(t.entries)
		key := make(Tuple, len(e.Key))
		copy(key, e.Key)
		t.entries = append(t.entries, TableEntry{Key: key, Value: e.Value})
	}
	return t, nil
}

// MustDataTable is NewDataTable for fixtures; it panics on error.
func MustDataTable(name string, arity int, entries ...TableEntry) *DataTable {
	t, err := NewDataTable(name, arity, entries)
	if err != nil {
		panic(err)
	}
	return t
}

// NumberColumn builds a one-index numeric table from parallel slices.
func NumberColumn(name string, keys []Index, vals []float64) (*DataTable, error) {
	if len(keys) != len(vals) {
		return nil, fmt.Errorf("data table %s: %d keys but %d values", name, len(keys), len(vals))
	}
	entries := make([]TableEntry, len(keys))
	for i := range keys {
		entries[i] = TableEntry{Key: Tuple{keys[i]}, Value: Number(vals[i])}
	}
	return NewDataTable(name, 1, entries)
}

// Name returns the table name.
func (t *DataTable) Name() string { return t.name }

// Arity returns the number of key indices (1 or 2).
func (t *DataTable) Arity() int { return t.arity }

// Len returns the number of entries.
func (t *DataTable) Len() int { return len(t.entries) }

// Lookup returns the value stored under key.
func (t *DataTable) Lookup(key Tuple) (Value, bool) {
	i, ok := t.byKey[key.Key()]
	if !ok {
		return nil, false
	}
	return t.entries[i].Value, true
}

// Entries returns a copy of the entries in insertion order.
func (t *DataTable) Entries() []TableEntry {
	out := make([]TableEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
