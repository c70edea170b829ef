// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

const testSchema = `
#Study: {
	name:     string
	subjects: int & >=0
	tasks?: [...string]
	order?: "hierarchical" | "flat"
}
`

type study struct {
	Name     string   `json:"name"`
	Subjects int      `json:"subjects"`
	Tasks    []string `json:"tasks,omitempty"`
	Order    string   `json:"order,omitempty"`
}

func TestParseAndDecode_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{"cue", "study.cue", "name: \"ds001\"\nsubjects: 3\ntasks: [\"rest\", \"nback\"]\n"},
		{"json", "study.json", `{"name": "ds001", "subjects": 3, "tasks": ["rest", "nback"]}`},
		{"yaml", "study.yaml", "name: ds001\nsubjects: 3\ntasks:\n  - rest\n  - nback\n"},
		{"yml", "study.yml", "name: ds001\nsubjects: 3\ntasks: [rest, nback]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := ParseAndDecode[study]([]byte(testSchema), []byte(tt.data), "#Study", WithFilename(tt.filename))
			if err != nil {
				t.Fatalf("ParseAndDecode() error = %v", err)
			}
			if res.Value.Name != "ds001" || res.Value.Subjects != 3 || len(res.Value.Tasks) != 2 {
				t.Errorf("decoded %+v", *res.Value)
			}
		})
	}
}

func TestParse_ValidationErrorIncludesPath(t *testing.T) {
	t.Parallel()

	data := []byte("name: ds001\nsubjects: 3\norder: nested\n")
	_, err := Parse([]byte(testSchema), data, "#Study", WithFilename("study.yaml"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "study.yaml") || !strings.Contains(msg, "order") {
		t.Errorf("error should name file and field, got: %s", msg)
	}
}

func TestParse_ClosedDefinitionRejectsUnknownField(t *testing.T) {
	t.Parallel()

	data := []byte(`{"name": "x", "subjects": 1, "sessions": 2}`)
	if _, err := Parse([]byte(testSchema), data, "#Study", WithFilename("s.json")); err == nil {
		t.Fatal("expected error for field not allowed by the definition")
	}
}

func TestParse_UserValueKeepsDeclarationOrder(t *testing.T) {
	t.Parallel()

	schema := []byte(`#Any: [string]: int`)
	data := []byte("zeta: 1\nalpha: 2\nmid: 3\n")
	res, err := Parse(schema, data, "#Any", WithFilename("order.yaml"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	iter, err := res.User.Fields()
	if err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	var got []string
	for iter.Next() {
		got = append(got, iter.Selector().Unquoted())
	}
	want := []string{"zeta", "alpha", "mid"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("field order = %v, want %v", got, want)
	}
}

func TestParse_FileSizeLimit(t *testing.T) {
	t.Parallel()

	data := []byte(strings.Repeat("#", 64))
	_, err := Parse([]byte(testSchema), data, "#Study", WithMaxFileSize(16), WithFilename("big.cue"))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestCompile_UnknownExtension(t *testing.T) {
	t.Parallel()

	_, err := Compile(cuecontext.New(), []byte("a: 1"), WithFilename("sets.ini"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Compile() error = %v, want ErrUnknownFormat", err)
	}
}

func TestCompile_ForcedFormat(t *testing.T) {
	t.Parallel()

	v, err := Compile(cuecontext.New(), []byte("a: 1\n"), WithFilename("stdin"), WithFormat(FormatYAML))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	n, err := v.LookupPath(cue.ParsePath("a")).Int64()
	if err != nil || n != 1 {
		t.Errorf("a = %d, %v", n, err)
	}
}

func TestParse_NonConcreteAllowed(t *testing.T) {
	t.Parallel()

	schema := []byte(`#S: { workers?: int & >=1 }`)
	if _, err := Parse(schema, []byte("{}"), "#S", WithConcrete(false)); err != nil {
		t.Errorf("Parse() error = %v", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"dwi"}, "dwi"},
		{[]string{"MTS", "named_set", "mt_on"}, "MTS.named_set.mt_on"},
		{[]string{"MTS", "required", "0"}, "MTS.required[0]"},
		{[]string{"loop_over", "1"}, "loop_over[1]"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"a.cue":  FormatCUE,
		"a.JSON": FormatJSON,
		"a.yaml": FormatYAML,
		"a.yml":  FormatYAML,
	}
	for name, want := range tests {
		got, err := DetectFormat(name)
		if err != nil || got != want {
			t.Errorf("DetectFormat(%q) = %q, %v; want %q", name, got, err, want)
		}
	}
	if _, err := DetectFormat("a.toml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
