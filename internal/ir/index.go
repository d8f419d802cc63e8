package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IndexKind distinguishes integer and string index values.
type IndexKind uint8

const (
	// KindInt marks an integer index value.
	KindInt IndexKind = iota
	// KindString marks a string index value.
	KindString
)

// Index is a single element of an index set. It is comparable and can be
// used directly as a map key.
type Index struct {
	kind IndexKind
	n    int64
	s    string
}

// IntIndex creates an integer index value.
func IntIndex(n int64) Index {
	return Index{kind: KindInt, n: n}
}

// StrIndex creates a string index value.
func StrIndex(s string) Index {
	return Index{kind: KindString, s: s}
}

// ParseIndex interprets raw text as an index value: integer-looking text
// becomes an integer index, anything else a string index.
func ParseIndex(raw string) Index {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return IntIndex(n)
	}
	return StrIndex(raw)
}

// Kind returns the index kind.
func (x Index) Kind() IndexKind { return x.kind }

// IsInt reports whether the index is an integer.
func (x Index) IsInt() bool { return x.kind == KindInt }

// Int64 returns the integer value. Only meaningful when IsInt is true.
func (x Index) Int64() int64 { return x.n }

// Text returns the string value. Only meaningful when IsInt is false.
func (x Index) Text() string { return x.s }

// String renders the index the way it appears in labels.
func (x Index) String() string {
	if x.kind == KindInt {
		return strconv.FormatInt(x.n, 10)
	}
	return x.s
}

// Compare orders integers before strings, integers numerically and strings
// lexically.
func (x Index) Compare(y Index) int {
	if x.kind != y.kind {
		if x.kind == KindInt {
			return -1
		}
		return 1
	}
	if x.kind == KindInt {
		switch {
		case x.n < y.n:
			return -1
		case x.n > y.n:
			return 1
		}
		return 0
	}
	return strings.Compare(x.s, y.s)
}

// MarshalJSON encodes integers as JSON numbers and strings as JSON strings.
func (x Index) MarshalJSON() ([]byte, error) {
	if x.kind == KindInt {
		return []byte(strconv.FormatInt(x.n, 10)), nil
	}
	return json.Marshal(x.s)
}

// UnmarshalJSON accepts a JSON integer or string.
func (x *Index) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*x = StrIndex(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("index must be an integer or string: %w", err)
	}
	*x = IntIndex(n)
	return nil
}

// Tuple is an ordered list of index values, one per index position.
type Tuple []Index

// Key returns a string uniquely identifying the tuple, distinguishing the
// integer 1 from the string "1".
func (t Tuple) Key() string {
	var b strings.Builder
	for i, x := range t {
		if i > 0 {
			b.WriteByte('|')
		}
		if x.kind == KindInt {
			b.WriteString("i:")
		} else {
			b.WriteString("s:")
		}
		b.WriteString(x.String())
	}
	return b.String()
}

// String renders the tuple as "(a,b)".
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, x := range t {
		parts[i] = x.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Equal reports element-wise equality.
func (t Tuple) Equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// IndexSet is a named, ordered collection of distinct index values.
// It is immutable after construction.
type IndexSet struct {
	name  string
	elems []Index
	pos   map[Index]int
}

// NewIndexSet builds an index set, rejecting duplicate elements.
func NewIndexSet(name string, elems []Index) (*IndexSet, error) {
	if name == "" {
		return nil, fmt.Errorf("index set name is required")
	}
	s := &IndexSet{
		name:  name,
		elems: make([]Index, len(elems)),
		pos:   make(map[Index]int, len(elems)),
	}
	for i, x := range elems {
		if prev, dup := s.pos[x]; dup {
			return nil, fmt.Errorf("index set %s: duplicate element %s at positions %d and %d", name, x, prev, i)
		}
		s.pos[x] = i
		s.elems[i] = x
	}
	return s, nil
}

// MustIndexSet is NewIndexSet for fixtures; it panics on error.
func MustIndexSet(name string, elems ...Index) *IndexSet {
	s, err := NewIndexSet(name, elems)
	if err != nil {
		panic(err)
	}
	return s
}

// IntRange returns the integer indices lo..hi inclusive.
func IntRange(lo, hi int64) []Index {
	if hi < lo {
		return nil
	}
	out := make([]Index, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, IntIndex(n))
	}
	return out
}

// Name returns the set name.
func (s *IndexSet) Name() string { return s.name }

// Len returns the number of elements.
func (s *IndexSet) Len() int { return len(s.elems) }

// At returns the element at ordinal position i.
func (s *IndexSet) At(i int) Index { return s.elems[i] }

// Position returns the ordinal position of x, if present.
func (s *IndexSet) Position(x Index) (int, bool) {
	i, ok := s.pos[x]
	return i, ok
}

// Contains reports set membership.
func (s *IndexSet) Contains(x Index) bool {
	_, ok := s.pos[x]
	return ok
}

// Elements returns a copy of the elements in order.
func (s *IndexSet) Elements() []Index {
	out := make([]Index, len(s.elems))
	copy(out, s.elems)
	return out
}
