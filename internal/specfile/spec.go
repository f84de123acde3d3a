package specfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Setting is one key/value entry. Line is the 1-based line where it starts.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Line  int    `json:"line"`
}

// Spec is the immutable result of a load.
type Spec struct {
	name     string
	entries  []Setting
	settings []Setting
	index    map[string]int
}

// New builds a Spec from settings in the given order, applying the same
// last-wins rule as Parse.
func New(name string, settings []Setting) *Spec {
	entries := make([]Setting, len(settings))
	copy(entries, settings)
	return newSpec(name, entries)
}

func newSpec(name string, entries []Setting) *Spec {
	s := &Spec{
		name:    name,
		entries: entries,
		index:   make(map[string]int, len(entries)),
	}
	for _, entry := range entries {
		if pos, ok := s.index[entry.Key]; ok {
			// First position, last value.
			s.settings[pos] = entry
			continue
		}
		s.index[entry.Key] = len(s.settings)
		s.settings = append(s.settings, entry)
	}
	return s
}

// Name returns the source name given to Parse.
func (s *Spec) Name() string {
	return s.name
}

// Entries returns every setting in file order, duplicates included.
func (s *Spec) Entries() []Setting {
	return cloneSettings(s.entries)
}

// Settings returns one setting per key in order of first appearance,
// holding the value of the last occurrence.
func (s *Spec) Settings() []Setting {
	return cloneSettings(s.settings)
}

// Len reports the number of distinct keys.
func (s *Spec) Len() int {
	return len(s.settings)
}

// Keys returns the distinct keys in order of first appearance.
func (s *Spec) Keys() []string {
	keys := make([]string, len(s.settings))
	for i, setting := range s.settings {
		keys[i] = setting.Key
	}
	return keys
}

// Get returns the raw value stored for key.
func (s *Spec) Get(key string) (string, bool) {
	pos, ok := s.index[key]
	if !ok {
		return "", false
	}
	return s.settings[pos].Value, true
}

// Equal reports whether s and other hold the same keys in the same order with
// the same values. Source names and line numbers are ignored.
func (s *Spec) Equal(other *Spec) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.settings) != len(other.settings) {
		return false
	}
	for i, setting := range s.settings {
		theirs := other.settings[i]
		if setting.Key != theirs.Key || setting.Value != theirs.Value {
			return false
		}
	}
	return true
}

// Lookup returns the full setting for key.
func (s *Spec) Lookup(key string) (Setting, bool) {
	pos, ok := s.index[key]
	if !ok {
		return Setting{}, false
	}
	return s.settings[pos], true
}

// Map returns the settings as a plain map.
func (s *Spec) Map() map[string]string {
	out := make(map[string]string, len(s.settings))
	for _, setting := range s.settings {
		out[setting.Key] = setting.Value
	}
	return out
}

// List interprets the value for key as a comma separated list.
func (s *Spec) List(key string) ([]string, bool) {
	value, ok := s.Get(key)
	if !ok {
		return nil, false
	}
	return SplitList(value), true
}

// Bool interprets the value for key as a boolean. The second result reports
// whether the key is present.
func (s *Spec) Bool(key string) (bool, bool, error) {
	value, ok := s.Get(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, true, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, true, nil
}

// SplitList splits a comma separated value, trimming items and dropping empty ones.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, part)
	}
	return items
}

func cloneSettings(src []Setting) []Setting {
	if len(src) == 0 {
		return []Setting{}
	}
	out := make([]Setting, len(src))
	copy(out, src)
	return out
}
