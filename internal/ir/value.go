package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is a sealed interface for data table cells.
// Only Number, Text, List, Set and Map implement it.
type Value interface {
	value() // Sealed - only these types implement it
	String() string
}

// Number is a numeric cell. All scalar arithmetic is floating point.
type Number float64

func (Number) value() {}

func (n Number) String() string { return formatFloat(float64(n)) }

// Text is a string cell.
type Text string

func (Text) value() {}

func (t Text) String() string { return string(t) }

// List is an ordered sequence of values; duplicates allowed.
type List []Value

func (List) value() {}

func (l List) String() string { return "[" + joinValues(l) + "]" }

// Set is an ordered collection of distinct values. Use NewSet to build one.
type Set []Value

func (Set) value() {}

func (s Set) String() string { return "{" + joinValues(s) + "}" }

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   Index
	Value Value
}

// Map is an ordered key to value mapping.
type Map []MapEntry

func (Map) value() {}

func (m Map) String() string {
	parts := make([]string, len(m))
	for i, e := range m {
		parts[i] = e.Key.String() + ":" + e.Value.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Get returns the value stored under key k.
func (m Map) Get(k Index) (Value, bool) {
	for _, e := range m {
		if e.Key == k {
			return e.Value, true
		}
	}
	return nil, false
}

// NewSet builds a Set, dropping later duplicates.
func NewSet(vals ...Value) Set {
	out := make(Set, 0, len(vals))
	for _, v := range vals {
		dup := false
		for _, seen := range out {
			if ValuesEqual(seen, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// IndexValue converts an index to the cell value it compares equal to.
func IndexValue(x Index) Value {
	if x.IsInt() {
		return Number(x.Int64())
	}
	return Text(x.Text())
}

// ValueIndex converts a scalar cell to an index. Numbers must be integral.
func ValueIndex(v Value) (Index, bool) {
	switch val := v.(type) {
	case Number:
		f := float64(val)
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return Index{}, false
		}
		return IntIndex(int64(f)), true
	case Text:
		return StrIndex(string(val)), true
	default:
		return Index{}, false
	}
}

// ValuesEqual compares two values structurally.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		return ok && valueSlicesEqual(av, bv)
	case Set:
		bv, ok := b.(Set)
		if !ok || len(av) != len(bv) {
			return false
		}
		for _, x := range av {
			if !containsValue(bv, x) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for _, e := range av {
			other, found := bv.Get(e.Key)
			if !found || !ValuesEqual(e.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Members returns the elements a membership test ranges over: list and set
// elements, or map keys. ok is false for scalars.
func Members(v Value) (members []Value, ok bool) {
	switch val := v.(type) {
	case List:
		return val, true
	case Set:
		return val, true
	case Map:
		out := make([]Value, len(val))
		for i, e := range val {
			out[i] = IndexValue(e.Key)
		}
		return out, true
	}
	return nil, false
}

// TypeName names the value kind for diagnostics.
func TypeName(v Value) string {
	switch v.(type) {
	case Number:
		return "number"
	case Text:
		return "string"
	case List:
		return "list"
	case Set:
		return "set"
	case Map:
		return "map"
	case nil:
		return "nothing"
	}
	return fmt.Sprintf("%T", v)
}

// MarshalValue encodes a value as JSON. Sets and lists become arrays, maps
// become objects keyed by the index text.
func MarshalValue(v Value) ([]byte, error) {
	plain, err := plainValue(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(plain)
}

func plainValue(v Value) (any, error) {
	switch val := v.(type) {
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite number %v", f)
		}
		return f, nil
	case Text:
		return string(val), nil
	case List:
		return plainSlice(val)
	case Set:
		return plainSlice(val)
	case Map:
		out := make(map[string]any, len(val))
		for _, e := range val {
			p, err := plainValue(e.Value)
			if err != nil {
				return nil, fmt.Errorf("map[%s]: %w", e.Key, err)
			}
			out[e.Key.String()] = p
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown Value type: %T", v)
}

func plainSlice(vals []Value) ([]any, error) {
	out := make([]any, len(vals))
	for i, v := range vals {
		p, err := plainValue(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// SortedMapKeys returns the keys of a map value in index order.
func SortedMapKeys(m Map) []Index {
	keys := make([]Index, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	return keys
}

func joinValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

func valueSlicesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ValuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func containsValue(vals []Value, x Value) bool {
	for _, v := range vals {
		if ValuesEqual(v, x) {
			return true
		}
	}
	return false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
