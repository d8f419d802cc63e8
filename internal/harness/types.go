package harness

import (
	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/compiler"
	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the expected outcome occurred and every assertion
	// held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Model is the compiled model, nil when compilation failed.
	Model *ir.Model `json:"-"`

	// Issues are the structural validation findings for Model.
	Issues []compiler.ValidationError `json:"issues,omitempty"`

	// CompileErr is the compilation failure, if any.
	CompileErr error `json:"-"`

	// Status and Solution describe the scripted solve, if one ran.
	Status   builder.Status    `json:"status,omitempty"`
	Solution *builder.Solution `json:"solution,omitempty"`

	// Runs are the runs the scenario's store recorded.
	Runs []store.Run `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
