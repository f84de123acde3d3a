package specfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Encode writes settings in the line format. A value is written as a scalar
// line whenever it reads back unchanged that way; otherwise (newlines,
// surrounding whitespace, a leading delimiter) it becomes a multi-line block.
func Encode(w io.Writer, settings []Setting) error {
	bw := bufio.NewWriter(w)
	for _, setting := range settings {
		if err := encodeSetting(bw, setting); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Encode writes the deduplicated settings of s.
func (s *Spec) Encode(w io.Writer) error {
	return Encode(w, s.settings)
}

func encodeSetting(w *bufio.Writer, setting Setting) error {
	key := setting.Key
	if key == "" || strings.TrimSpace(key) != key || strings.ContainsAny(key, "=\n\r") || strings.HasPrefix(key, "#") {
		return fmt.Errorf("%w: invalid key %q", ErrUnencodable, key)
	}

	value := setting.Value
	if !needsBlock(value) {
		_, err := fmt.Fprintf(w, "%s = %s\n", key, value)
		return err
	}

	// Block content cannot carry the delimiter, and the reader strips a
	// trailing carriage return from every block line.
	if strings.Contains(value, blockDelim) {
		return fmt.Errorf("%w: value of %q needs a multi-line block but contains %s", ErrUnencodable, key, blockDelim)
	}
	for _, line := range strings.Split(value, "\n") {
		if strings.HasSuffix(line, "\r") {
			return fmt.Errorf("%w: value of %q has a line ending in a carriage return", ErrUnencodable, key)
		}
	}

	if strings.TrimSpace(value) == "" && !strings.Contains(value, "\n") {
		// A whitespace-only single line is dropped by the block rules; keep it inline.
		_, err := fmt.Fprintf(w, "%s = %s%s%s\n", key, blockDelim, value, blockDelim)
		return err
	}
	_, err := fmt.Fprintf(w, "%s = %s\n%s\n%s\n", key, blockDelim, value, blockDelim)
	return err
}

// needsBlock reports whether value would not survive a scalar line: the
// reader trims scalars and opens a block on a leading delimiter.
func needsBlock(value string) bool {
	return strings.Contains(value, "\n") ||
		strings.TrimSpace(value) != value ||
		strings.HasPrefix(value, blockDelim)
}
