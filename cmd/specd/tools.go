package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eugenenazirov/specd/internal/android"
	"github.com/eugenenazirov/specd/internal/export"
	"github.com/eugenenazirov/specd/internal/specfile"
)

var errUnknownKey = errors.New("no such setting")

func runCheck(w io.Writer, path string) error {
	spec, err := specfile.ParseFile(path)
	if err != nil {
		return err
	}

	pkg, err := android.Decode(spec)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, warning := range pkg.Warnings {
		fmt.Fprintf(w, "%s: warning: %s\n", path, warning)
	}

	if dups := len(spec.Entries()) - spec.Len(); dups > 0 {
		fmt.Fprintf(w, "%s: warning: %d duplicate setting(s), last value wins\n", path, dups)
	}
	fmt.Fprintf(w, "%s: ok (%d settings)\n", path, spec.Len())
	return nil
}

func runFmt(w io.Writer, path string, write bool) error {
	spec, err := specfile.ParseFile(path)
	if err != nil {
		return err
	}
	if write {
		return specfile.WriteFile(path, spec.Settings())
	}
	return spec.Encode(w)
}

func runGet(w io.Writer, path, key string, list bool) error {
	spec, err := specfile.ParseFile(path)
	if err != nil {
		return err
	}

	if list {
		items, ok := spec.List(key)
		if !ok {
			return fmt.Errorf("%w: %s", errUnknownKey, key)
		}
		_, err := fmt.Fprintln(w, strings.Join(items, "\n"))
		return err
	}

	value, ok := spec.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownKey, key)
	}
	_, err = fmt.Fprintln(w, value)
	return err
}

func runExport(w io.Writer, path, format string) error {
	spec, err := specfile.ParseFile(path)
	if err != nil {
		return err
	}
	return export.Render(w, format, spec)
}
