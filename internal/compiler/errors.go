package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/sigma/internal/ir"
)

// ObjectiveTemplate is the template name reported for objective errors.
const ObjectiveTemplate = "objective"

// CompileError reports a structural problem with a model source that is not
// tied to an index or a data lookup, such as a duplicate declaration.
type CompileError struct {
	Template string
	Message  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Template, e.Message)
}

// UnboundIndexError reports an index identifier that no quantifier, sum or
// variable subscript binds.
type UnboundIndexError struct {
	Template string
	Index    string
	Fragment string
}

func (e *UnboundIndexError) Error() string {
	return fmt.Sprintf("%s: index %q is not bound by any quantifier or sum in %s", e.Template, e.Index, e.Fragment)
}

// DuplicateIndexError reports an index bound again while already in scope.
type DuplicateIndexError struct {
	Template string
	Index    string
	Set      string
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("%s: index %q over %s is already bound in this scope", e.Template, e.Index, e.Set)
}

// UnknownSetOrTableError reports a reference to a name the compilation
// context does not define. Kind is "set", "table", "variable" or "name".
type UnknownSetOrTableError struct {
	Template string
	Kind     string
	Name     string
}

func (e *UnknownSetOrTableError) Error() string {
	return fmt.Sprintf("%s: unknown %s %q", e.Template, e.Kind, e.Name)
}

// DomainMismatchError reports a value used where its kind does not fit:
// a non-numeric cell in arithmetic, division by a variable, a product of
// degree three, or an index implicitly bound to two different sets.
type DomainMismatchError struct {
	Template string
	Fragment string
	Message  string
}

func (e *DomainMismatchError) Error() string {
	return fmt.Sprintf("%s: %s in %s", e.Template, e.Message, e.Fragment)
}

// IndexRangeError reports index arithmetic that leaves its set, or an index
// value outside the set a variable is declared over.
type IndexRangeError struct {
	Template string
	Fragment string
	Set      string
	Index    ir.Index
	Offset   int
}

func (e *IndexRangeError) Error() string {
	if e.Offset != 0 {
		return fmt.Sprintf("%s: %s shifts %s by %d outside set %s", e.Template, e.Fragment, e.Index, e.Offset, e.Set)
	}
	return fmt.Sprintf("%s: %s is not an element of set %s in %s", e.Template, e.Index, e.Set, e.Fragment)
}

// MissingEntryError reports a data table lookup with no entry for the key.
type MissingEntryError struct {
	Template string
	Table    string
	Key      ir.Tuple
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("%s: table %s has no entry for %s", e.Template, e.Table, e.Key)
}

// IsCompileError returns true if err is or wraps a CompileError.
func IsCompileError(err error) bool {
	var target *CompileError
	return errors.As(err, &target)
}

// IsUnboundIndexError returns true if err is or wraps an UnboundIndexError.
func IsUnboundIndexError(err error) bool {
	var target *UnboundIndexError
	return errors.As(err, &target)
}

// IsDuplicateIndexError returns true if err is or wraps a DuplicateIndexError.
func IsDuplicateIndexError(err error) bool {
	var target *DuplicateIndexError
	return errors.As(err, &target)
}

// IsUnknownSetOrTableError returns true if err is or wraps an
// UnknownSetOrTableError.
func IsUnknownSetOrTableError(err error) bool {
	var target *UnknownSetOrTableError
	return errors.As(err, &target)
}

// IsDomainMismatchError returns true if err is or wraps a DomainMismatchError.
func IsDomainMismatchError(err error) bool {
	var target *DomainMismatchError
	return errors.As(err, &target)
}

// IsIndexRangeError returns true if err is or wraps an IndexRangeError.
func IsIndexRangeError(err error) bool {
	var target *IndexRangeError
	return errors.As(err, &target)
}

// IsMissingEntryError returns true if err is or wraps a MissingEntryError.
func IsMissingEntryError(err error) bool {
	var target *MissingEntryError
	return errors.As(err, &target)
}
