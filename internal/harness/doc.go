// Package harness runs model conformance scenarios.
//
// A scenario is a YAML file naming a model spec, an optional scripted
// solve and a list of assertions over the compiled model and the solve:
//
//	name: coverage_budget
//	description: budget row sums tower costs
//	spec: ../../modelspec/testdata/coverage.cue
//	solve:
//	  status: optimal
//	  values: {build_0: 1, iscovered_0: 1}
//	assertions:
//	  - type: constraint
//	    label: budget_limit
//	    text: "5*build_0 + 30*build_1 <= 20"
//
// Each scenario compiles in a fresh session backed by an in-memory store
// with a fixed run ID, so results and golden snapshots are reproducible.
// Solves use the recording builder; no external solver is involved.
package harness
