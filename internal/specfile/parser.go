package specfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	blockDelim  = `"""`
	defaultName = "<input>"
)

// Parse reads settings from r. name is used in error messages only.
// A syntax error aborts the load; no partial Spec is returned.
func Parse(r io.Reader, name string) (*Spec, error) {
	if name == "" {
		name = defaultName
	}
	p := &parser{
		name:   name,
		reader: bufio.NewReader(r),
	}
	entries, err := p.run()
	if err != nil {
		return nil, err
	}
	return newSpec(name, entries), nil
}

// ParseFile opens path and parses it.
func ParseFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spec file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Parse(f, path)
}

type parser struct {
	name   string
	reader *bufio.Reader
	line   int
}

// next returns the next line without its terminator. ok is false at EOF.
func (p *parser) next() (string, bool, error) {
	raw, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, fmt.Errorf("read %s: %w", p.name, err)
	}
	if raw == "" && err != nil {
		return "", false, nil
	}
	p.line++
	raw = strings.TrimSuffix(raw, "\n")
	raw = strings.TrimSuffix(raw, "\r")
	return raw, true, nil
}

func (p *parser) run() ([]Setting, error) {
	var entries []Setting
	for {
		line, ok, err := p.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return entries, nil
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, found := strings.Cut(trimmed, "=")
		if !found {
			return nil, p.syntaxError(p.line, "", "expected key = value")
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, p.syntaxError(p.line, "", "missing key before '='")
		}
		value = strings.TrimSpace(value)

		start := p.line
		if strings.HasPrefix(value, blockDelim) {
			// Re-cut the untrimmed line so text after the opening delimiter is kept verbatim.
			_, rawValue, _ := strings.Cut(line, "=")
			rest := strings.TrimLeft(rawValue, " \t")
			value, err = p.block(key, start, strings.TrimPrefix(rest, blockDelim))
			if err != nil {
				return nil, err
			}
		}

		entries = append(entries, Setting{Key: key, Value: value, Line: start})
	}
}

// block collects a multi-line value. first is whatever followed the opening
// delimiter on the key line.
func (p *parser) block(key string, start int, first string) (string, error) {
	if inner, tail, closed := strings.Cut(first, blockDelim); closed {
		if strings.TrimSpace(tail) != "" {
			return "", p.syntaxError(start, key, "unexpected text after closing \"\"\"")
		}
		return inner, nil
	}

	var lines []string
	if strings.TrimSpace(first) != "" {
		lines = append(lines, first)
	}

	for {
		line, ok, err := p.next()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", p.syntaxError(start, key, "unterminated multi-line value")
		}

		before, tail, closed := strings.Cut(line, blockDelim)
		if !closed {
			lines = append(lines, line)
			continue
		}
		if strings.TrimSpace(tail) != "" {
			return "", p.syntaxError(p.line, key, "unexpected text after closing \"\"\"")
		}
		if strings.TrimSpace(before) != "" {
			lines = append(lines, before)
		}
		return strings.Join(lines, "\n"), nil
	}
}

func (p *parser) syntaxError(line int, key, msg string) error {
	return &SyntaxError{File: p.name, Line: line, Key: key, Msg: msg}
}
