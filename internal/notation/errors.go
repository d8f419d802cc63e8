package notation

import (
	"errors"
	"fmt"
)

// SyntaxError reports malformed notation with the offending fragment and
// its byte offset in the source string.
type SyntaxError struct {
	Template string // constraint or objective name, set by the compiler
	Source   string // full notation string
	Pos      int    // byte offset of the offending token
	Fragment string // source text at Pos
	Message  string
}

func (e *SyntaxError) Error() string {
	prefix := ""
	if e.Template != "" {
		prefix = e.Template + ": "
	}
	if e.Fragment != "" {
		return fmt.Sprintf("%ssyntax error at offset %d near %q: %s", prefix, e.Pos, e.Fragment, e.Message)
	}
	return fmt.Sprintf("%ssyntax error at offset %d: %s", prefix, e.Pos, e.Message)
}

// IsSyntaxError returns true if err is or wraps a SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// fragmentLen caps how much source text a SyntaxError quotes.
const fragmentLen = 16

func newSyntaxError(src string, pos int, format string, args ...any) *SyntaxError {
	if pos > len(src) {
		pos = len(src)
	}
	frag := src[pos:]
	if len(frag) > fragmentLen {
		// Cut on a rune boundary so the fragment stays valid UTF-8.
		cut := fragmentLen
		for cut < len(frag) && frag[cut]&0xC0 == 0x80 {
			cut++
		}
		frag = frag[:cut]
	}
	return &SyntaxError{
		Source:   src,
		Pos:      pos,
		Fragment: frag,
		Message:  fmt.Sprintf(format, args...),
	}
}
