package modelspec

import (
	"fmt"
	"math"
	"strconv"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

type nodeKind uint8

const (
	kindNull nodeKind = iota
	kindNumber
	kindString
	kindBool
	kindList
	kindObject
)

func (k nodeKind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindString:
		return "string"
	case kindBool:
		return "bool"
	case kindList:
		return "list"
	case kindObject:
		return "object"
	}
	return "null"
}

// node is a format-neutral, positioned view of a decoded spec file.
// Object fields keep their source order.
type node struct {
	kind   nodeKind
	num    float64
	isInt  bool
	str    string
	b      bool
	items  []*node
	fields []field
	pos    Position
}

type field struct {
	label string
	value *node
}

func (n *node) get(label string) *node {
	if n == nil || n.kind != kindObject {
		return nil
	}
	for _, f := range n.fields {
		if f.label == label {
			return f.value
		}
	}
	return nil
}

func cuePosition(p token.Pos) Position {
	if !p.IsValid() {
		return Position{}
	}
	return Position{File: p.Filename(), Line: p.Line(), Column: p.Column()}
}

// fromCUE converts a concrete CUE value.
func fromCUE(v cue.Value) (*node, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(CodeBuildFailed, err)
	}
	n := &node{pos: cuePosition(v.Pos())}
	switch v.Kind() {
	case cue.NullKind:
		n.kind = kindNull
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, cueError(CodeInvalid, err)
		}
		n.kind, n.b = kindBool, b
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, cueError(CodeInvalid, err)
		}
		n.kind, n.num, n.isInt = kindNumber, float64(i), true
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, cueError(CodeInvalid, err)
		}
		n.kind, n.num = kindNumber, f
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueError(CodeInvalid, err)
		}
		n.kind, n.str = kindString, s
	case cue.ListKind:
		n.kind = kindList
		iter, err := v.List()
		if err != nil {
			return nil, cueError(CodeInvalid, err)
		}
		for iter.Next() {
			item, err := fromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, item)
		}
	case cue.StructKind:
		n.kind = kindObject
		iter, err := v.Fields()
		if err != nil {
			return nil, cueError(CodeInvalid, err)
		}
		for iter.Next() {
			val, err := fromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			n.fields = append(n.fields, field{label: iter.Selector().Unquoted(), value: val})
		}
	default:
		return nil, &LoadError{Code: CodeInvalid, Message: fmt.Sprintf("value is not concrete: %v", v), Pos: n.pos}
	}
	return n, nil
}

// cueError keeps the first CUE error and its position.
func cueError(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error(), Err: err}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error(), Err: err}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = cuePosition(positions[0])
	}
	return le
}

// fromYAML converts a decoded YAML document.
func fromYAML(file string, y *yaml.Node) (*node, error) {
	n := &node{pos: Position{File: file, Line: y.Line, Column: y.Column}}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &node{kind: kindObject, pos: n.pos}, nil
		}
		return fromYAML(file, y.Content[0])
	case yaml.AliasNode:
		return fromYAML(file, y.Alias)
	case yaml.SequenceNode:
		n.kind = kindList
		for _, c := range y.Content {
			item, err := fromYAML(file, c)
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, item)
		}
	case yaml.MappingNode:
		n.kind = kindObject
		seen := make(map[string]bool, len(y.Content)/2)
		for i := 0; i+1 < len(y.Content); i += 2 {
			k := y.Content[i]
			if seen[k.Value] {
				return nil, &LoadError{Code: CodeInvalid, Message: fmt.Sprintf("duplicate key %q", k.Value),
					Pos: Position{File: file, Line: k.Line, Column: k.Column}}
			}
			seen[k.Value] = true
			val, err := fromYAML(file, y.Content[i+1])
			if err != nil {
				return nil, err
			}
			n.fields = append(n.fields, field{label: k.Value, value: val})
		}
	case yaml.ScalarNode:
		return yamlScalar(n, y)
	default:
		return nil, &LoadError{Code: CodeInvalid, Message: "unsupported YAML node", Pos: n.pos}
	}
	return n, nil
}

func yamlScalar(n *node, y *yaml.Node) (*node, error) {
	switch y.ShortTag() {
	case "!!null":
		n.kind = kindNull
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, &LoadError{Code: CodeInvalid, Message: err.Error(), Pos: n.pos, Err: err}
		}
		n.kind, n.b = kindBool, b
	case "!!int":
		var i int64
		if err := y.Decode(&i); err != nil {
			return nil, &LoadError{Code: CodeInvalid, Message: err.Error(), Pos: n.pos, Err: err}
		}
		n.kind, n.num, n.isInt = kindNumber, float64(i), true
	case "!!float":
		f, err := strconv.ParseFloat(y.Value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &LoadError{Code: CodeInvalid, Message: fmt.Sprintf("number %q is not finite", y.Value), Pos: n.pos}
		}
		n.kind, n.num = kindNumber, f
	default:
		n.kind, n.str = kindString, y.Value
	}
	return n, nil
}
