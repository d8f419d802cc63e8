package modelspec

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/roach88/sigma/internal/compiler"
	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/tables"
)

// Spec is a decoded model description.
type Spec struct {
	Name string
	// Dir resolves relative data file paths.
	Dir    string
	Sets   []*ir.IndexSet
	Tables []*ir.DataTable
	Params map[string]float64
	Data   []DataFile

	Variables   []compiler.VariableSource
	Constraints []compiler.ConstraintSource
	Objective   compiler.ObjectiveSource
}

// DataFile is a CSV file contributing sets and tables.
type DataFile struct {
	Path string
	Keys int
	Pos  Position
}

// Source returns the notation side of the spec.
func (s *Spec) Source() compiler.Source {
	return compiler.Source{
		Name:        s.Name,
		Variables:   s.Variables,
		Constraints: s.Constraints,
		Objective:   s.Objective,
	}
}

// Context reads the data files and combines them with the inline sets,
// tables and parameters.
func (s *Spec) Context() (*compiler.Context, error) {
	parts := []*tables.Data{{Sets: s.Sets, Tables: s.Tables}}
	for _, df := range s.Data {
		path := df.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.Dir, path)
		}
		d, err := tables.ReadFile(path, tables.Options{Keys: df.Keys, Source: df.Path})
		if err != nil {
			return nil, &LoadError{Code: CodeData, Field: "data", Message: err.Error(), Pos: df.Pos, Err: err}
		}
		parts = append(parts, d)
	}
	merged, err := tables.Merge(parts...)
	if err != nil {
		return nil, &LoadError{Code: CodeData, Field: "data", Message: err.Error(), Err: err}
	}
	ctx, err := compiler.NewContext(merged.Sets, merged.Tables, s.Params)
	if err != nil {
		return nil, &LoadError{Code: CodeData, Message: err.Error(), Err: err}
	}
	return ctx, nil
}

// decodeModel builds a Spec from a model body. Every field error is
// collected.
func decodeModel(name, dir string, body *node) (*Spec, error) {
	if body.kind != kindObject {
		return nil, invalid(body, "model", "must be an object, got %s", body.kind)
	}
	s := &Spec{Name: name, Dir: dir, Params: map[string]float64{}}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	known := map[string]bool{
		"name": true, "sets": true, "tables": true, "params": true, "data": true,
		"variables": true, "constraints": true, "objective": true,
	}
	for _, f := range body.fields {
		if !known[f.label] {
			add(invalid(f.value, f.label, "unknown field"))
		}
	}
	if n := body.get("name"); n != nil {
		if n.kind != kindString || n.str == "" {
			add(invalid(n, "name", "must be a non-empty string"))
		} else {
			s.Name = n.str
		}
	}
	add(s.decodeSets(body.get("sets")))
	add(s.decodeTables(body.get("tables")))
	add(s.decodeParams(body.get("params")))
	add(s.decodeData(body.get("data")))
	add(s.decodeVariables(body.get("variables")))
	add(s.decodeConstraints(body.get("constraints")))
	add(s.decodeObjective(body, body.get("objective")))
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func (s *Spec) decodeSets(n *node) error {
	if n == nil {
		return nil
	}
	if n.kind != kindObject {
		return invalid(n, "sets", "must be an object of set name to elements")
	}
	for _, f := range n.fields {
		field := "sets." + f.label
		var elems []ir.Index
		switch f.value.kind {
		case kindList:
			for _, item := range f.value.items {
				x, err := toIndex(item, field)
				if err != nil {
					return err
				}
				elems = append(elems, x)
			}
		case kindObject:
			lo, hi := f.value.get("from"), f.value.get("to")
			if lo == nil || hi == nil || !lo.isInt || !hi.isInt {
				return invalid(f.value, field, "a range needs integer from and to")
			}
			elems = ir.IntRange(int64(lo.num), int64(hi.num))
		default:
			return invalid(f.value, field, "must be a list or a {from, to} range")
		}
		set, err := ir.NewIndexSet(f.label, elems)
		if err != nil {
			return invalid(f.value, field, "%v", err)
		}
		s.Sets = append(s.Sets, set)
	}
	return nil
}

// decodeTables reads inline tables. A table whose values are all objects
// is keyed by two indices; otherwise by one.
func (s *Spec) decodeTables(n *node) error {
	if n == nil {
		return nil
	}
	if n.kind != kindObject {
		return invalid(n, "tables", "must be an object of table name to entries")
	}
	for _, f := range n.fields {
		field := "tables." + f.label
		if f.value.kind != kindObject {
			return invalid(f.value, field, "must be an object of key to value")
		}
		arity := 1
		if len(f.value.fields) > 0 {
			arity = 2
			for _, row := range f.value.fields {
				if row.value.kind != kindObject {
					arity = 1
					break
				}
			}
		}
		var entries []ir.TableEntry
		for _, row := range f.value.fields {
			k1 := ir.ParseIndex(row.label)
			if arity == 1 {
				v, err := toValue(row.value, field+"."+row.label)
				if err != nil {
					return err
				}
				entries = append(entries, ir.TableEntry{Key: ir.Tuple{k1}, Value: v})
				continue
			}
			for _, cell := range row.value.fields {
				v, err := toValue(cell.value, field+"."+row.label+"."+cell.label)
				if err != nil {
					return err
				}
				entries = append(entries, ir.TableEntry{Key: ir.Tuple{k1, ir.ParseIndex(cell.label)}, Value: v})
			}
		}
		t, err := ir.NewDataTable(f.label, arity, entries)
		if err != nil {
			return invalid(f.value, field, "%v", err)
		}
		s.Tables = append(s.Tables, t)
	}
	return nil
}

func (s *Spec) decodeParams(n *node) error {
	if n == nil {
		return nil
	}
	if n.kind != kindObject {
		return invalid(n, "params", "must be an object of name to number")
	}
	for _, f := range n.fields {
		if f.value.kind != kindNumber {
			return invalid(f.value, "params."+f.label, "must be a number, got %s", f.value.kind)
		}
		s.Params[f.label] = f.value.num
	}
	return nil
}

func (s *Spec) decodeData(n *node) error {
	if n == nil {
		return nil
	}
	if n.kind != kindList {
		return invalid(n, "data", "must be a list of files")
	}
	for i, item := range n.items {
		field := "data[" + strconv.Itoa(i) + "]"
		df := DataFile{Keys: 1, Pos: item.pos}
		switch item.kind {
		case kindString:
			df.Path = item.str
		case kindObject:
			file := item.get("file")
			if file == nil || file.kind != kindString || file.str == "" {
				return invalid(item, field, "file is required")
			}
			df.Path = file.str
			if k := item.get("keys"); k != nil {
				if !k.isInt || (k.num != 1 && k.num != 2) {
					return invalid(k, field+".keys", "must be 1 or 2")
				}
				df.Keys = int(k.num)
			}
		default:
			return invalid(item, field, "must be a path or {file, keys}")
		}
		s.Data = append(s.Data, df)
	}
	return nil
}

func (s *Spec) decodeVariables(n *node) error {
	if n == nil {
		return invalid(&node{}, "variables", "at least one variable is required")
	}
	if n.kind != kindList {
		return invalid(n, "variables", "must be a list")
	}
	for i, item := range n.items {
		field := "variables[" + strconv.Itoa(i) + "]"
		var vs compiler.VariableSource
		switch item.kind {
		case kindString:
			vs.Decl = item.str
		case kindObject:
			decl := item.get("decl")
			if decl == nil || decl.kind != kindString {
				return invalid(item, field, "decl is required")
			}
			vs.Decl = decl.str
			if d := item.get("domain"); d != nil {
				dom, err := ir.ParseDomain(d.str)
				if err != nil || d.kind != kindString {
					return invalid(d, field+".domain", "must be binary, integer or continuous")
				}
				vs.Domain = dom
			}
			var err error
			if vs.Lower, err = bound(item.get("lower"), field+".lower"); err != nil {
				return err
			}
			if vs.Upper, err = bound(item.get("upper"), field+".upper"); err != nil {
				return err
			}
		default:
			return invalid(item, field, "must be a declaration string or {decl, domain, lower, upper}")
		}
		s.Variables = append(s.Variables, vs)
	}
	if len(s.Variables) == 0 {
		return invalid(n, "variables", "at least one variable is required")
	}
	return nil
}

func bound(n *node, field string) (*float64, error) {
	if n == nil {
		return nil, nil
	}
	switch n.kind {
	case kindNumber:
		v := n.num
		return &v, nil
	case kindString:
		switch n.str {
		case "inf", "+inf":
			v := math.Inf(1)
			return &v, nil
		case "-inf":
			v := math.Inf(-1)
			return &v, nil
		}
	}
	return nil, invalid(n, field, "must be a number, \"inf\" or \"-inf\"")
}

// decodeConstraints accepts an ordered object of name to notation, or a
// list of notation strings named c1, c2 and so on.
func (s *Spec) decodeConstraints(n *node) error {
	if n == nil {
		return nil
	}
	switch n.kind {
	case kindObject:
		for _, f := range n.fields {
			if f.value.kind != kindString {
				return invalid(f.value, "constraints."+f.label, "must be a notation string")
			}
			s.Constraints = append(s.Constraints, compiler.ConstraintSource{Name: f.label, Notation: f.value.str})
		}
	case kindList:
		for i, item := range n.items {
			if item.kind != kindString {
				return invalid(item, "constraints["+strconv.Itoa(i)+"]", "must be a notation string")
			}
			s.Constraints = append(s.Constraints, compiler.ConstraintSource{Name: "c" + strconv.Itoa(i+1), Notation: item.str})
		}
	default:
		return invalid(n, "constraints", "must be an object or a list")
	}
	return nil
}

// decodeObjective reads {expression, sense}. "formula" is accepted as an
// alias for expression.
func (s *Spec) decodeObjective(body, n *node) error {
	if n == nil {
		return invalid(body, "objective", "objective is required")
	}
	if n.kind != kindObject {
		return invalid(n, "objective", "must be an object with expression and sense")
	}
	expr := n.get("expression")
	if expr == nil {
		expr = n.get("formula")
	}
	if expr == nil || expr.kind != kindString {
		return invalid(n, "objective.expression", "expression is required")
	}
	s.Objective.Expression = expr.str
	sense := n.get("sense")
	if sense == nil || sense.kind != kindString {
		return invalid(n, "objective.sense", "sense is required")
	}
	parsed, err := ir.ParseSense(sense.str)
	if err != nil {
		return invalid(sense, "objective.sense", "%v", err)
	}
	s.Objective.Sense = parsed
	return nil
}

func toIndex(n *node, field string) (ir.Index, error) {
	switch {
	case n.kind == kindNumber && n.isInt:
		return ir.IntIndex(int64(n.num)), nil
	case n.kind == kindNumber && n.num == math.Trunc(n.num):
		return ir.IntIndex(int64(n.num)), nil
	case n.kind == kindString:
		return ir.StrIndex(n.str), nil
	}
	return ir.Index{}, invalid(n, field, "index elements must be integers or strings, got %s", n.kind)
}

func toValue(n *node, field string) (ir.Value, error) {
	switch n.kind {
	case kindNumber:
		return ir.Number(n.num), nil
	case kindString:
		return ir.Text(n.str), nil
	case kindList:
		out := make(ir.List, 0, len(n.items))
		for i, item := range n.items {
			v, err := toValue(item, fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case kindObject:
		out := make(ir.Map, 0, len(n.fields))
		for _, f := range n.fields {
			v, err := toValue(f.value, field+"."+f.label)
			if err != nil {
				return nil, err
			}
			out = append(out, ir.MapEntry{Key: ir.ParseIndex(f.label), Value: v})
		}
		return out, nil
	}
	return nil, invalid(n, field, "unsupported cell value of kind %s", n.kind)
}

// modelNames lists the labels under a "model" object, sorted.
func modelNames(models *node) []string {
	names := make([]string, 0, len(models.fields))
	for _, f := range models.fields {
		names = append(names, f.label)
	}
	sort.Strings(names)
	return names
}
