package analysis

import (
	"testing"

	"github.com/kr/pretty"

	"jsonnet/interpreter-go/pkg/parser"
	"jsonnet/interpreter-go/pkg/runtime"
)

func check(t *testing.T, src string, predefined ...string) []Diagnostic {
	t.Helper()
	expr, err := parser.Parse("check.jsonnet", []byte(src))
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return New(predefined...).Check(expr)
}

func TestCleanPrograms(t *testing.T) {
	cases := []string{
		`local x = 1; x + std.length([])`,
		`local f(a, b=a) = a + b; f(1)`,
		`local even(n) = if n == 0 then true else odd(n - 1), odd(n) = if n == 0 then false else even(n - 1); even(4)`,
		`{ local h = self.a, a: 1, b: h, c: $.a, d: super.x, e: "x" in super }`,
		`{ [k]: v for k in ["a"] for v in [k + "1"] if v != "" }`,
		`{ local _unused = 1, a: 1 }`,
		`[x * y for x in [1, 2] for y in [x]]`,
		`{ f(x, y=x): x + y + self.g, g:: 0 }`,
		`function(a) { [a]: a }`,
		`import "other.libsonnet"`,
	}
	for _, src := range cases {
		if diags := check(t, src); len(diags) != 0 {
			t.Fatalf("%s: unexpected diagnostics %# v", src, pretty.Formatter(diags))
		}
	}
}

func TestErrors(t *testing.T) {
	cases := []struct {
		src  string
		kind runtime.ErrorKind
		msg  string
	}{
		{`y`, runtime.ErrVariableNotDefined, "variable is not defined: y"},
		{`{ a: missing }.b`, runtime.ErrVariableNotDefined, "variable is not defined: missing"},
		{`self.a`, runtime.ErrCantUseSelfOutsideOfObject, "can't use self outside of an object"},
		{`super.a`, runtime.ErrCantUseSuperOutsideOfObject, "can't use super outside of an object"},
		{`"a" in super`, runtime.ErrCantUseSuperOutsideOfObject, "can't use super outside of an object"},
		{`$.a`, runtime.ErrNoTopLevelObjectFound, "no top-level object found for $"},
		{`{ [self.k]: 1 }`, runtime.ErrCantUseSelfOutsideOfObject, "can't use self outside of an object"},
		{`{ local l = 1, [l]: 2 }`, runtime.ErrVariableNotDefined, "variable is not defined: l"},
		{`function(a=b, b=1) a`, runtime.ErrVariableNotDefined, "variable is not defined: b"},
		{`[x for x in [x]]`, runtime.ErrVariableNotDefined, "variable is not defined: x"},
		{`{ [v]: 1 for k in [1] }`, runtime.ErrVariableNotDefined, "variable is not defined: v"},
	}
	for _, tc := range cases {
		diags := check(t, tc.src)
		if !HasErrors(diags) {
			t.Fatalf("%s: expected an error, got %# v", tc.src, pretty.Formatter(diags))
		}
		err := runtime.AsError(FirstError(diags))
		if err.Kind != tc.kind || err.Message != tc.msg {
			t.Fatalf("%s: got %s %q, want %s %q", tc.src, err.Kind, err.Message, tc.kind, tc.msg)
		}
		if len(err.Trace) != 1 || err.Trace[0].Span.File != "check.jsonnet" {
			t.Fatalf("%s: expected a located frame, got %# v", tc.src, pretty.Formatter(err.Trace))
		}
	}
}

func TestUnusedLocals(t *testing.T) {
	diags := check(t, "local a = 1, b = 2;\n{ local c = 3, d: a }")
	var got []string
	for _, d := range diags {
		if d.Severity != SeverityWarning {
			t.Fatalf("unexpected error %s", d)
		}
		got = append(got, d.Message)
	}
	want := []string{"unused local: b", "unused local: c"}
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Fatalf("warnings mismatch: %v", diff)
	}
	if HasErrors(diags) || FirstError(diags) != nil {
		t.Fatalf("warnings must not count as errors")
	}
}

func TestPredefinedNames(t *testing.T) {
	if diags := check(t, `prelude + 1`, "prelude"); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics %# v", pretty.Formatter(diags))
	}
	diags := check(t, `{ a: 1 }.a + nope`)
	if len(diags) != 1 || diags[0].String() == "" || diags[0].Span.Start.Line != 1 {
		t.Fatalf("unexpected diagnostics %# v", pretty.Formatter(diags))
	}
}
