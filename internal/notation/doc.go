// Package notation parses the indexed-algebra model notation into a typed AST.
//
// Three kinds of strings are parsed:
//
//	variable declarations   z^{Plant,H} continuous >= 0
//	constraint templates    z_{i,h} - z_{i,h-1} <= r_i * Capacity_i ∀_i^{Plant} ∀_h^{H} if h > 1
//	objective expressions   Σ_r^{Region}(iscovered_r * Population_r)
//
// Summation and quantifier symbols have ASCII spellings: Σ, ∑, \sum, /sum
// and sum are equivalent, as are ∀, \forall, /forall and forall.
//
// Subscripts are parsed into Ref nodes carrying IndexExpr values; the
// package never rewrites the source text. Whether a Ref names a decision
// variable, a data table or a scalar parameter is decided later by the
// compiler against its context.
//
// Guards (the trailing "if ..." of a constraint or of a parenthesized sum
// body) are a separate production from the constraint comparison, so a
// guard's "=" is always an equality test and never the constraint operator.
package notation
