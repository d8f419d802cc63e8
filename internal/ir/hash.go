package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future encoding change.
const (
	DomainModel = "sigma/model/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash computes the content-addressed identity of a compiled model.
// Two compilations of the same notation over the same data hash alike,
// which is what lets the store deduplicate models across solve runs.
func ModelHash(m *Model) (string, error) {
	canonical, err := MarshalCanonical(m.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// CanonicalMap converts the model to plain maps and slices for
// MarshalCanonical.
func (m *Model) CanonicalMap() map[string]any {
	decls := make([]any, len(m.Decls))
	for i, d := range m.Decls {
		sets := make([]any, len(d.Sets))
		for j, s := range d.Sets {
			sets[j] = s
		}
		obj := map[string]any{"name": d.Name, "sets": sets, "domain": string(d.Domain)}
		putBound(obj, "lower", d.Lower)
		putBound(obj, "upper", d.Upper)
		decls[i] = obj
	}
	vars := make([]any, len(m.Variables))
	for i, v := range m.Variables {
		obj := map[string]any{"id": v.ID, "name": v.Name, "tuple": v.Tuple, "domain": string(v.Domain)}
		putBound(obj, "lower", v.Lower)
		putBound(obj, "upper", v.Upper)
		vars[i] = obj
	}
	cons := make([]any, len(m.Constraints))
	for i, c := range m.Constraints {
		cons[i] = map[string]any{
			"name":    c.Name,
			"binding": c.Binding,
			"lhs":     canonicalExpr(c.LHS),
			"op":      string(c.Op),
			"rhs":     canonicalExpr(c.RHS),
		}
	}
	return map[string]any{
		"name":        m.Name,
		"decls":       decls,
		"variables":   vars,
		"constraints": cons,
		"objective": map[string]any{
			"sense": string(m.Objective.Sense),
			"expr":  canonicalExpr(m.Objective.Expr),
		},
	}
}

func canonicalExpr(e LinExpr) map[string]any {
	terms := make([]any, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = []any{t.Var, t.Coef}
	}
	quad := make([]any, len(e.Quad))
	for i, q := range e.Quad {
		quad[i] = []any{q.A, q.B, q.Coef}
	}
	return map[string]any{"constant": e.Constant, "terms": terms, "quad": quad}
}

// putBound writes infinite bounds as "inf"/"-inf"; canonical JSON has no
// non-finite numbers.
func putBound(obj map[string]any, key string, b *float64) {
	switch {
	case b == nil:
	case math.IsInf(*b, 1):
		obj[key] = "inf"
	case math.IsInf(*b, -1):
		obj[key] = "-inf"
	default:
		obj[key] = *b
	}
}
