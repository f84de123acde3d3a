package specfile

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is the sentinel wrapped by every *SyntaxError.
	ErrSyntax = errors.New("spec syntax error")
	// ErrUnencodable is returned when a value cannot be written back in the line format.
	ErrUnencodable = errors.New("value cannot be encoded")
)

// SyntaxError reports a malformed line or an unterminated multi-line block.
// Line is 1-based; for unterminated blocks it is the line that opened the block.
type SyntaxError struct {
	File string
	Line int
	Key  string
	Msg  string
}

func (e *SyntaxError) Error() string {
	file := e.File
	if file == "" {
		file = defaultName
	}
	if e.Key != "" {
		return fmt.Sprintf("%s:%d: %s (key %q)", file, e.Line, e.Msg, e.Key)
	}
	return fmt.Sprintf("%s:%d: %s", file, e.Line, e.Msg)
}

// Unwrap lets callers match any syntax failure with errors.Is(err, ErrSyntax).
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}
