// Package export renders a loaded spec in other formats.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/specd/internal/specfile"
)

// Format names accepted by Render.
const (
	FormatSpec = "spec"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// ErrUnknownFormat is returned for a format name Render does not support.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported format names.
func Formats() []string {
	return []string{FormatSpec, FormatJSON, FormatYAML, FormatTOML}
}

// ContentType returns the media type used when serving format over HTTP.
func ContentType(format string) string {
	switch normalize(format) {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatTOML:
		return "application/toml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render writes the deduplicated settings of spec in the given format. Keys
// stay flat: a dotted key is never split into nested tables.
func Render(w io.Writer, format string, spec *specfile.Spec) error {
	if spec == nil {
		return errors.New("export: nil spec")
	}

	switch normalize(format) {
	case FormatSpec:
		return spec.Encode(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(spec.Map())
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(orderedYAML(spec)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(spec.Map()); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func normalize(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "txt", "text":
		return FormatSpec
	case "yml":
		return FormatYAML
	}
	return format
}

// orderedYAML keeps keys in file order, which a Go map would lose.
func orderedYAML(spec *specfile.Spec) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, setting := range spec.Settings() {
		value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: setting.Value}
		if strings.Contains(setting.Value, "\n") {
			value.Style = yaml.LiteralStyle
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: setting.Key},
			value,
		)
	}
	return node
}
