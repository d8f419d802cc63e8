package ir

import (
	"fmt"
	"strings"
)

// Domain is the value domain of a decision variable.
type Domain string

const (
	DomainBinary     Domain = "binary"
	DomainInteger    Domain = "integer"
	DomainContinuous Domain = "continuous"
)

// ParseDomain accepts a domain tag, case-insensitive.
func ParseDomain(s string) (Domain, error) {
	switch d := Domain(strings.ToLower(strings.TrimSpace(s))); d {
	case DomainBinary, DomainInteger, DomainContinuous:
		return d, nil
	}
	return "", fmt.Errorf("unknown variable domain %q: must be binary, integer or continuous", s)
}

// Sense is the optimization direction of the objective.
type Sense string

const (
	Maximize Sense = "maximize"
	Minimize Sense = "minimize"
)

// ParseSense accepts "maximize"/"minimize" (also "max"/"min"), case-insensitive.
func ParseSense(s string) (Sense, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "maximize", "max":
		return Maximize, nil
	case "minimize", "min":
		return Minimize, nil
	}
	return "", fmt.Errorf("unknown objective sense %q: must be maximize or minimize", s)
}

// Op is a constraint comparison operator.
type Op string

const (
	OpLE Op = "<="
	OpGE Op = ">="
	OpEQ Op = "="
)

// VariableDecl declares an indexed family of decision variables.
type VariableDecl struct {
	Name   string   `json:"name"`
	Sets   []string `json:"sets"`
	Domain Domain   `json:"domain"`
	Lower  *float64 `json:"lower,omitempty"`
	Upper  *float64 `json:"upper,omitempty"`
}

// Variable is one materialized scalar decision variable.
type Variable struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Tuple  Tuple    `json:"tuple"`
	Domain Domain   `json:"domain"`
	Lower  *float64 `json:"lower,omitempty"`
	Upper  *float64 `json:"upper,omitempty"`
}

// Label renders the variable in subscript notation: x_0, z_{Plant1,2}.
func (v Variable) Label() string {
	return subscriptLabel(v.Name, v.Tuple)
}

// Constraint is one instantiated constraint template.
type Constraint struct {
	Name    string  `json:"name"`
	Binding Tuple   `json:"binding,omitempty"`
	LHS     LinExpr `json:"lhs"`
	Op      Op      `json:"op"`
	RHS     LinExpr `json:"rhs"`
}

// Label renders the instance name with its quantifier binding.
func (c Constraint) Label() string {
	return subscriptLabel(c.Name, c.Binding)
}

// Objective is the single scalar objective of a model.
type Objective struct {
	Expr  LinExpr `json:"expr"`
	Sense Sense   `json:"sense"`
}

// Model is the fully expanded, solver-agnostic model.
type Model struct {
	Name        string         `json:"name"`
	Decls       []VariableDecl `json:"decls"`
	Variables   []Variable     `json:"variables"`
	Constraints []Constraint   `json:"constraints"`
	Objective   Objective      `json:"objective"`

	lookup map[string]int
}

// NewModel assembles a model and indexes its variables by (name, tuple).
// Variable IDs must equal their position in vars.
func NewModel(name string, decls []VariableDecl, vars []Variable, cons []Constraint, obj Objective) (*Model, error) {
	m := &Model{
		Name:        name,
		Decls:       decls,
		Variables:   vars,
		Constraints: cons,
		Objective:   obj,
		lookup:      make(map[string]int, len(vars)),
	}
	for i, v := range vars {
		if v.ID != i {
			return nil, fmt.Errorf("variable %s has id %d at position %d", v.Label(), v.ID, i)
		}
		k := variableKey(v.Name, v.Tuple)
		if _, dup := m.lookup[k]; dup {
			return nil, fmt.Errorf("duplicate variable %s", v.Label())
		}
		m.lookup[k] = i
	}
	return m, nil
}

// Lookup finds a variable by declaration name and index tuple.
func (m *Model) Lookup(name string, t Tuple) (Variable, bool) {
	i, ok := m.lookup[variableKey(name, t)]
	if !ok {
		return Variable{}, false
	}
	return m.Variables[i], true
}

// VariablesOf returns the variables materialized for one declaration.
func (m *Model) VariablesOf(name string) []Variable {
	var out []Variable
	for _, v := range m.Variables {
		if v.Name == name {
			out = append(out, v)
		}
	}
	return out
}

// ConstraintsOf returns the instances of one constraint template.
func (m *Model) ConstraintsOf(name string) []Constraint {
	var out []Constraint
	for _, c := range m.Constraints {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func variableKey(name string, t Tuple) string {
	return name + "#" + t.Key()
}

func subscriptLabel(name string, t Tuple) string {
	switch len(t) {
	case 0:
		return name
	case 1:
		return name + "_" + t[0].String()
	}
	parts := make([]string, len(t))
	for i, x := range t {
		parts[i] = x.String()
	}
	return name + "_{" + strings.Join(parts, ",") + "}"
}
