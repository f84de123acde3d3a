package specfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const packagingSpec = `# Android packaging options
android.gradle_dependencies = androidx.core:core:1.9.0

android.enable_androidx = True
android.manifest.application = """
    <provider
        android:name="androidx.core.content.FileProvider"
        android:exported="false">
    </provider>
"""
android.add_resources = res/xml/filepaths.xml:xml/filepaths.xml
    # indented comment
android.permissions = WRITE_EXTERNAL_STORAGE,READ_EXTERNAL_STORAGE
android.meta_data = com.example.key=value
`

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []Setting
	}{
		{
			name:  "Scalar",
			input: "android.enable_androidx = True\n",
			want:  []Setting{{Key: "android.enable_androidx", Value: "True", Line: 1}},
		},
		{
			name:  "CommentsAndBlankLinesIgnored",
			input: "# header\n\n   \n\t# tabbed comment\nkey = value\n",
			want:  []Setting{{Key: "key", Value: "value", Line: 5}},
		},
		{
			name:  "SplitsOnFirstEquals",
			input: "android.meta_data = a=b,c=d",
			want:  []Setting{{Key: "android.meta_data", Value: "a=b,c=d", Line: 1}},
		},
		{
			name:  "EmptyValue",
			input: "key =\n",
			want:  []Setting{{Key: "key", Value: "", Line: 1}},
		},
		{
			name:  "CRLF",
			input: "a = 1\r\nb = \"\"\"\r\nx\r\n\"\"\"\r\n",
			want: []Setting{
				{Key: "a", Value: "1", Line: 1},
				{Key: "b", Value: "x", Line: 2},
			},
		},
		{
			name:  "BlockPreservesWhitespace",
			input: "block = \"\"\"\n  <a>\n\n\t<b/>\n  </a>\n\"\"\"\nafter = 1\n",
			want: []Setting{
				{Key: "block", Value: "  <a>\n\n\t<b/>\n  </a>", Line: 1},
				{Key: "after", Value: "1", Line: 7},
			},
		},
		{
			name:  "BlockTextOnDelimiterLines",
			input: "block = \"\"\"<a>\n<b/>\n</a>\"\"\"\n",
			want:  []Setting{{Key: "block", Value: "<a>\n<b/>\n</a>", Line: 1}},
		},
		{
			name:  "BlockOnOneLine",
			input: "block = \"\"\"  inline  \"\"\"\n",
			want:  []Setting{{Key: "block", Value: "  inline  ", Line: 1}},
		},
		{
			name:  "HashInsideBlockIsContent",
			input: "block = \"\"\"\n# not a comment\n\"\"\"\n",
			want:  []Setting{{Key: "block", Value: "# not a comment", Line: 1}},
		},
		{
			name:  "NoTrailingNewline",
			input: "key = value",
			want:  []Setting{{Key: "key", Value: "value", Line: 1}},
		},
		{
			name:  "Empty",
			input: "",
			want:  []Setting{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			spec, err := Parse(strings.NewReader(tc.input), "test.spec")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, spec.Entries()); diff != "" {
				t.Fatalf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantLine int
		wantKey  string
	}{
		{
			name:     "UnterminatedBlock",
			input:    "a = 1\n\nandroid.manifest.application = \"\"\"\n<application/>\n",
			wantLine: 3,
			wantKey:  "android.manifest.application",
		},
		{
			name:     "MissingEquals",
			input:    "a = 1\njust some words\n",
			wantLine: 2,
		},
		{
			name:     "MissingKey",
			input:    "  = value\n",
			wantLine: 1,
		},
		{
			name:     "TextAfterClosingDelimiter",
			input:    "block = \"\"\"\nx\n\"\"\" trailing\n",
			wantLine: 3,
			wantKey:  "block",
		},
		{
			name:     "TextAfterInlineBlock",
			input:    "block = \"\"\"x\"\"\" trailing\n",
			wantLine: 1,
			wantKey:  "block",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			spec, err := Parse(strings.NewReader(tc.input), "broken.spec")
			if spec != nil {
				t.Fatalf("expected no spec on error, got %v", spec.Entries())
			}
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("expected ErrSyntax, got %v", err)
			}

			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected *SyntaxError, got %T", err)
			}
			if syntaxErr.Line != tc.wantLine {
				t.Fatalf("expected line %d, got %d", tc.wantLine, syntaxErr.Line)
			}
			if syntaxErr.Key != tc.wantKey {
				t.Fatalf("expected key %q, got %q", tc.wantKey, syntaxErr.Key)
			}
			if syntaxErr.File != "broken.spec" {
				t.Fatalf("expected file name in error, got %q", syntaxErr.File)
			}
		})
	}
}

func TestSyntaxErrorMessage(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("x = \"\"\"\nopen"), "")
	if err == nil {
		t.Fatalf("expected error")
	}
	want := `<input>:1: unterminated multi-line value (key "x")`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestParseDuplicateKeysLastWins(t *testing.T) {
	t.Parallel()

	input := "android.permissions = CAMERA\nother = 1\nandroid.permissions = INTERNET,VIBRATE\n"
	spec, err := Parse(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(spec.Entries()) != 3 {
		t.Fatalf("expected raw entries to keep duplicates, got %d", len(spec.Entries()))
	}

	want := map[string]string{
		"android.permissions": "INTERNET,VIBRATE",
		"other":               "1",
	}
	if diff := cmp.Diff(want, spec.Map()); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}

	wantSettings := []Setting{
		{Key: "android.permissions", Value: "INTERNET,VIBRATE", Line: 3},
		{Key: "other", Value: "1", Line: 2},
	}
	if diff := cmp.Diff(wantSettings, spec.Settings()); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	t.Parallel()

	first, err := Parse(strings.NewReader(packagingSpec), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Parse(strings.NewReader(packagingSpec), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(first.Map(), second.Map()); diff != "" {
		t.Fatalf("parses differ (-first +second):\n%s", diff)
	}
}

func TestParsePackagingSpec(t *testing.T) {
	t.Parallel()

	spec, err := Parse(strings.NewReader(packagingSpec), "buildozer.spec")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantKeys := []string{
		"android.gradle_dependencies",
		"android.enable_androidx",
		"android.manifest.application",
		"android.add_resources",
		"android.permissions",
		"android.meta_data",
	}
	if diff := cmp.Diff(wantKeys, spec.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	manifest, _ := spec.Get("android.manifest.application")
	if !strings.HasPrefix(manifest, "    <provider\n") || !strings.HasSuffix(manifest, "    </provider>") {
		t.Fatalf("manifest block not preserved verbatim: %q", manifest)
	}

	perms, ok := spec.List("android.permissions")
	if !ok {
		t.Fatalf("expected permissions to be present")
	}
	if diff := cmp.Diff([]string{"WRITE_EXTERNAL_STORAGE", "READ_EXTERNAL_STORAGE"}, perms); diff != "" {
		t.Fatalf("permissions mismatch (-want +got):\n%s", diff)
	}

	enabled, ok, err := spec.Bool("android.enable_androidx")
	if err != nil || !ok || !enabled {
		t.Fatalf("expected androidx enabled, got %v %v %v", enabled, ok, err)
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "buildozer.spec")
	if err := os.WriteFile(path, []byte(packagingSpec), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	spec, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Name() != path {
		t.Fatalf("expected name %s, got %s", path, spec.Name())
	}
	if spec.Len() != 6 {
		t.Fatalf("expected 6 settings, got %d", spec.Len())
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.spec")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
