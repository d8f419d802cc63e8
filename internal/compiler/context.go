package compiler

import (
	"fmt"
	"sort"

	"github.com/roach88/sigma/internal/ir"
)

// Context holds the resolved index sets, data tables and scalar parameters
// a model compiles against. It is immutable once built, so one Context can
// serve concurrent compilations.
type Context struct {
	sets   map[string]*ir.IndexSet
	tables map[string]*ir.DataTable
	params map[string]float64
}

// NewContext builds a compilation context. Set, table and parameter names
// share one namespace.
func NewContext(sets []*ir.IndexSet, tables []*ir.DataTable, params map[string]float64) (*Context, error) {
	c := &Context{
		sets:   make(map[string]*ir.IndexSet, len(sets)),
		tables: make(map[string]*ir.DataTable, len(tables)),
		params: make(map[string]float64, len(params)),
	}
	seen := make(map[string]string)
	claim := func(name, kind string) error {
		if name == "" {
			return fmt.Errorf("%s name is required", kind)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("name %q defined as both %s and %s", name, prev, kind)
		}
		seen[name] = kind
		return nil
	}
	for _, s := range sets {
		if err := claim(s.Name(), "set"); err != nil {
			return nil, err
		}
		c.sets[s.Name()] = s
	}
	for _, t := range tables {
		if err := claim(t.Name(), "table"); err != nil {
			return nil, err
		}
		c.tables[t.Name()] = t
	}
	for name, v := range params {
		if err := claim(name, "parameter"); err != nil {
			return nil, err
		}
		c.params[name] = v
	}
	return c, nil
}

// MustContext is NewContext for fixtures; it panics on error.
func MustContext(sets []*ir.IndexSet, tables []*ir.DataTable, params map[string]float64) *Context {
	c, err := NewContext(sets, tables, params)
	if err != nil {
		panic(err)
	}
	return c
}

// Set returns the named index set.
func (c *Context) Set(name string) (*ir.IndexSet, bool) {
	s, ok := c.sets[name]
	return s, ok
}

// Table returns the named data table.
func (c *Context) Table(name string) (*ir.DataTable, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Param returns the named scalar parameter.
func (c *Context) Param(name string) (float64, bool) {
	v, ok := c.params[name]
	return v, ok
}

// Has reports whether name is a set, table or parameter.
func (c *Context) Has(name string) bool {
	if _, ok := c.sets[name]; ok {
		return true
	}
	if _, ok := c.tables[name]; ok {
		return true
	}
	_, ok := c.params[name]
	return ok
}

// Names lists every set, table and parameter name, sorted.
func (c *Context) Names() []string {
	names := make([]string, 0, len(c.sets)+len(c.tables)+len(c.params))
	for n := range c.sets {
		names = append(names, n)
	}
	for n := range c.tables {
		names = append(names, n)
	}
	for n := range c.params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
