package manifest

import (
	"testing"

	"github.com/kr/pretty"
	"gopkg.in/yaml.v3"

	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/runtime"
)

func mustEval(t *testing.T, src string) runtime.Value {
	t.Helper()
	v, err := interpreter.New(interpreter.Config{}).EvaluateSnippet("manifest_test.jsonnet", src)
	if err != nil {
		t.Fatalf("evaluate %q: %s", src, runtime.FormatError(err))
	}
	return v
}

func TestYAMLDocument(t *testing.T) {
	out, err := YAML(mustEval(t, `{b: [1, "x"], a: {}, e: [], h:: "hidden"}`), Options{})
	if err != nil {
		t.Fatalf("yaml: %s", runtime.FormatError(err))
	}
	want := "a: {}\nb:\n  - 1\n  - x\ne: []\n"
	if out != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestYAMLPreservesScalarTypes(t *testing.T) {
	out, err := YAML(mustEval(t, `{s: "true", n: "1", m: "a\nb\n", f: 1.5, i: 3, z: null, t: true}`), Options{})
	if err != nil {
		t.Fatalf("yaml: %s", runtime.FormatError(err))
	}
	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := map[string]any{
		"s": "true",
		"n": "1",
		"m": "a\nb\n",
		"f": 1.5,
		"i": 3,
		"z": nil,
		"t": true,
	}
	if diff := pretty.Diff(want, decoded); len(diff) > 0 {
		t.Fatalf("decoded yaml mismatch:\n%s\n%v", out, diff)
	}
}

func TestYAMLPreserveOrder(t *testing.T) {
	out, err := YAML(mustEval(t, `{b: 1, a: 2}`), Options{PreserveOrder: true})
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if want := "b: 1\na: 2\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestYAMLStream(t *testing.T) {
	out, err := YAMLStream(mustEval(t, `[{a: 1}, [2]]`), Options{})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if want := "---\na: 1\n---\n- 2\n...\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}

	if _, err := YAMLStream(mustEval(t, `{a: 1}`), Options{}); !runtime.IsKind(err, runtime.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch for non-array stream, got %v", err)
	}
}

func TestManifestErrors(t *testing.T) {
	_, err := YAML(mustEval(t, `{f: function(x) x}`), Options{})
	if !runtime.IsKind(err, runtime.ErrManifestFunction) {
		t.Fatalf("expected manifest function error, got %v", err)
	}
	if trace := runtime.AsError(err).Trace; len(trace) == 0 || trace[0].Description != "field <f> manifestification" {
		t.Fatalf("unexpected trace %# v", pretty.Formatter(trace))
	}

	_, err = YAML(mustEval(t, `[1, error "late"]`), Options{})
	if err == nil || runtime.AsError(err).Message != "late" {
		t.Fatalf("expected element error, got %v", err)
	}
}

func TestRenderFormats(t *testing.T) {
	v := mustEval(t, `{a: [1]}`)
	cases := []struct {
		format string
		want   string
	}{
		{"", "{\"a\": [1]}\n"},
		{"json", "{\"a\": [1]}\n"},
		{"YAML", "a:\n  - 1\n"},
	}
	for _, tc := range cases {
		format, err := ParseFormat(tc.format)
		if err != nil {
			t.Fatalf("parse format %q: %v", tc.format, err)
		}
		out, err := Render(v, format, Options{})
		if err != nil {
			t.Fatalf("render %s: %v", format, err)
		}
		if out != tc.want {
			t.Fatalf("render %s = %q, want %q", format, out, tc.want)
		}
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
