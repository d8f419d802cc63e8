// Package modelspec loads model descriptions from CUE or YAML.
//
// A spec names its index sets, data tables, scalar parameters and CSV data
// files, declares variable families, lists constraint templates in order
// and gives the objective:
//
//	model: coverage: {
//		sets: Region: [0, 1, 2]
//		tables: Population: {"0": 10, "1": 20, "2": 5}
//		variables: ["iscovered^{Region} binary"]
//		constraints: budget: "Σ_t^{Tower}(build_t * Cost_t) <= 20"
//		objective: {expression: "Σ_r^{Region}(iscovered_r * Population_r)", sense: "maximize"}
//	}
//
// YAML uses the same fields. Both formats are decoded into one positioned
// tree first, so every error reports the file, line and column of the
// offending field.
package modelspec
