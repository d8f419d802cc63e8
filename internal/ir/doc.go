// Package ir provides the solver-agnostic model representation produced by
// the compiler.
//
// This package contains data types only. All other internal packages import
// ir; ir imports nothing internal, so it stays the foundational layer.
//
// Key design constraints:
//   - Index sets and data tables are immutable once constructed
//   - Variables carry dense integer IDs assigned in materialization order
//   - Expressions are flattened: constant + linear terms + quadratic terms
//   - Iteration order is always explicit (slices, never map ranges) so that
//     identical inputs produce identical models and hashes
package ir
