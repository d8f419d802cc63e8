package modelspec

import (
	"errors"
	"fmt"
)

// Error codes carried by LoadError.
const (
	CodeGeneric     = "E001"
	CodeNoFiles     = "E003"
	CodeLoadFailed  = "E004"
	CodeNotFound    = "E005"
	CodeBuildFailed = "E006"
	CodeInvalid     = "E008"
	CodeData        = "E009"
)

// Position locates a field in a spec file. Line and Column are 1-based;
// zero means unknown.
type Position struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// IsValid reports whether the position carries a line.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return p.File
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// LoadError is a failure to read or interpret a spec.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     Position
	Err     error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Pos.IsValid() || e.Pos.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

func invalid(n *node, field, format string, args ...any) *LoadError {
	return &LoadError{Code: CodeInvalid, Field: field, Message: fmt.Sprintf(format, args...), Pos: n.pos}
}
