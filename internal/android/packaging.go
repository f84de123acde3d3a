package android

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eugenenazirov/specd/internal/specfile"
)

// ErrInvalidValue is returned when a recognized key holds a value its consumer cannot use.
var ErrInvalidValue = errors.New("invalid packaging value")

// Resource is one entry of android.add_resources. Destination is empty when
// the entry names only a source.
type Resource struct {
	Source      string `json:"source" yaml:"source" toml:"source"`
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty" toml:"destination,omitempty"`
}

// MetaData is one name=value entry of android.meta_data.
type MetaData struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Value string `json:"value" yaml:"value" toml:"value"`
}

// Packaging is the typed view of the recognized keys.
type Packaging struct {
	GradleDependencies  []string   `json:"gradleDependencies"`
	EnableAndroidX      bool       `json:"enableAndroidX"`
	ManifestApplication string     `json:"manifestApplication,omitempty"`
	AddResources        []Resource `json:"addResources"`
	Permissions         []string   `json:"permissions"`
	MetaData            []MetaData `json:"metaData"`
	Warnings            []string   `json:"warnings,omitempty"`
}

// Decode interprets spec. Unknown keys are reported as warnings, never as errors.
func Decode(spec *specfile.Spec) (Packaging, error) {
	pkg := Packaging{
		GradleDependencies: []string{},
		AddResources:       []Resource{},
		Permissions:        []string{},
		MetaData:           []MetaData{},
	}
	if spec == nil {
		return pkg, nil
	}

	if deps, ok := spec.List(KeyGradleDependencies); ok {
		pkg.GradleDependencies = deps
	}

	enabled, _, err := spec.Bool(KeyEnableAndroidX)
	if err != nil {
		return Packaging{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	pkg.EnableAndroidX = enabled

	if manifest, ok := spec.Get(KeyManifestApplication); ok {
		if err := checkFragment(manifest); err != nil {
			return Packaging{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, KeyManifestApplication, err)
		}
		pkg.ManifestApplication = manifest
	}

	if items, ok := spec.List(KeyAddResources); ok {
		for _, item := range items {
			source, dest, _ := strings.Cut(item, ":")
			source = strings.TrimSpace(source)
			if source == "" {
				return Packaging{}, fmt.Errorf("%w: %s: empty source in %q", ErrInvalidValue, KeyAddResources, item)
			}
			pkg.AddResources = append(pkg.AddResources, Resource{
				Source:      source,
				Destination: strings.TrimSpace(dest),
			})
		}
	}

	if perms, ok := spec.List(KeyPermissions); ok {
		pkg.Permissions = perms
	}

	if items, ok := spec.List(KeyMetaData); ok {
		for _, item := range items {
			name, value, found := strings.Cut(item, "=")
			name = strings.TrimSpace(name)
			if !found || name == "" {
				return Packaging{}, fmt.Errorf("%w: %s: expected name=value, got %q", ErrInvalidValue, KeyMetaData, item)
			}
			pkg.MetaData = append(pkg.MetaData, MetaData{Name: name, Value: strings.TrimSpace(value)})
		}
	}

	for _, key := range spec.Keys() {
		if !IsKnownKey(key) {
			pkg.Warnings = append(pkg.Warnings, fmt.Sprintf("unknown key %q is passed through unchanged", key))
		}
	}

	return pkg, nil
}

// checkFragment verifies that a manifest fragment is well-formed XML. The
// fragment may hold several sibling elements, so it is checked inside a
// synthetic root that declares the android namespace.
func checkFragment(fragment string) error {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	wrapped := `<fragment xmlns:android="http://schemas.android.com/apk/res/android">` + fragment + `</fragment>`
	decoder := xml.NewDecoder(strings.NewReader(wrapped))
	for {
		_, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
