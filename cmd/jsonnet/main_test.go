package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jsonnet/interpreter-go/pkg/driver"
	"jsonnet/interpreter-go/pkg/interpreter"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func captureCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runCLI(args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestEvaluateSnippet(t *testing.T) {
	code, out, errOut := captureCLI(t, "-e", `{b: [1, 2], a: "x"}`)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	want := "{\n   \"a\": \"x\",\n   \"b\": [\n      1,\n      2\n   ]\n}\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestEvaluateFileWithVariables(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.jsonnet")
	writeFile(t, main, `function(n, tag="t") { env: std.extVar("env"), code: std.extVar("code"), n: n, tag: tag }`)
	t.Setenv("JSONNET_TEST_UNSET", "")
	os.Unsetenv("JSONNET_TEST_UNSET")

	code, out, errOut := captureCLI(t, "-A", "JSONNET_TEST_UNSET", main)
	if code == 0 {
		t.Fatalf("expected failure for unset environment variable, got %q", out)
	}
	if !strings.Contains(errOut, "environment variable JSONNET_TEST_UNSET is not set") {
		t.Fatalf("unexpected stderr %q", errOut)
	}

	code, out, errOut = captureCLI(t,
		"--output", "yaml",
		"-V", "env=prod",
		"--ext-code", "code=1 + 1",
		"--tla-code", "n=3",
		"-A", "tag=x",
		main,
	)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if want := "code: 2\nenv: prod\nn: 3\ntag: x\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestEnvironmentBackedVariable(t *testing.T) {
	t.Setenv("JSONNET_TEST_ENV", "from-env")
	code, out, errOut := captureCLI(t, "-V", "JSONNET_TEST_ENV", "-e", `std.extVar("JSONNET_TEST_ENV")`)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "\"from-env\"\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRuntimeErrorOutput(t *testing.T) {
	code, out, errOut := captureCLI(t, "--color", "never", "-e", `local f(x) = error "bad " + x; f("input")`)
	if code != 1 {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
	if !strings.HasPrefix(errOut, "RUNTIME ERROR: bad input\n\t<cmdline>:") {
		t.Fatalf("unexpected stderr %q", errOut)
	}
	if strings.Contains(errOut, ansiRed) {
		t.Fatalf("color disabled but output colored")
	}

	code, _, errOut = captureCLI(t, "--color", "always", "-e", `{`)
	if code != 1 {
		t.Fatalf("exit %d for parse error", code)
	}
	if !strings.HasPrefix(errOut, ansiRed+"STATIC ERROR: ") {
		t.Fatalf("unexpected stderr %q", errOut)
	}
}

func TestYAMLStreamAndOutputFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out", "stream.yaml")
	code, out, errOut := captureCLI(t, "-y", "-o", target, "-e", `[{a: 1}, "two"]`)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "" {
		t.Fatalf("expected no stdout, got %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "---\na: 1\n---\ntwo\n...\n"; string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

func TestProjectConfigAndMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, driver.ConfigFileName), "name: site\npreserve_order: true\njpath: [lib]\next_str:\n  env: stage\n")
	writeFile(t, filepath.Join(dir, "lib", "base.libsonnet"), `{ z: std.extVar("env"), a: 1 }`)
	writeFile(t, filepath.Join(dir, "one.jsonnet"), `import "base.libsonnet"`)
	writeFile(t, filepath.Join(dir, "two.jsonnet"), `[1]`)

	code, out, errOut := captureCLI(t, "--output", "json", filepath.Join(dir, "one.jsonnet"), filepath.Join(dir, "two.jsonnet"))
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	want := "{\n   \"z\": \"stage\",\n   \"a\": 1\n}\n[\n   1\n]\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}

	writeFile(t, filepath.Join(dir, "bad.jsonnet"), `error "nope"`)
	code, _, errOut = captureCLI(t, "--color", "never", filepath.Join(dir, "two.jsonnet"), filepath.Join(dir, "bad.jsonnet"))
	if code != 1 || !strings.Contains(errOut, "RUNTIME ERROR: nope") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}

func TestMaxStackFlag(t *testing.T) {
	src := `local f(n) = if n == 0 then 0 else 1 + f(n - 1); f(100)`
	code, _, errOut := captureCLI(t, "--color", "never", "-s", "50", "-e", src)
	if code != 1 || !strings.Contains(errOut, "max stack frames exceeded") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	code, out, errOut := captureCLI(t, "-e", src)
	if code != 0 || out != "100\n" {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}
}

func TestDepsInstallCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shared", "util.libsonnet"), `{ v: 7 }`)
	app := filepath.Join(dir, "app")
	config := filepath.Join(app, driver.ConfigFileName)
	writeFile(t, config, "name: app\ndependencies:\n  shared: ../shared\n")
	writeFile(t, filepath.Join(app, "main.jsonnet"), `(import "shared/util.libsonnet").v`)

	code, out, errOut := captureCLI(t, "--config", config, "deps", "install")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "shared local\n" {
		t.Fatalf("unexpected stdout %q", out)
	}
	if _, err := os.Stat(filepath.Join(app, driver.LockfileName)); err != nil {
		t.Fatalf("lockfile missing: %v", err)
	}

	code, out, errOut = captureCLI(t, filepath.Join(app, "main.jsonnet"))
	if code != 0 || out != "7\n" {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}

	code, out, _ = captureCLI(t, "--config", config, "deps", "verify")
	if code != 0 || out != "1 package(s) verified\n" {
		t.Fatalf("verify: exit %d, stdout %q", code, out)
	}
	writeFile(t, filepath.Join(app, driver.VendorDir, "shared", "util.libsonnet"), `{ v: 8 }`)
	code, _, errOut = captureCLI(t, "--config", config, "deps", "verify")
	if code != 1 || !strings.Contains(errOut, "shared: checksum") {
		t.Fatalf("verify after edit: exit %d, stderr %q", code, errOut)
	}
}

func TestReplSession(t *testing.T) {
	session := newReplSession(interpreter.Config{})
	if !session.complete("local x = 2;") {
		t.Fatalf("binding should be complete")
	}
	if session.complete("{ a: 1,") {
		t.Fatalf("open object should wait for more input")
	}
	if _, err := session.Eval("local x = 2;"); err != nil {
		t.Fatalf("binding: %v", err)
	}
	if _, err := session.Eval("local broken = ;"); err == nil {
		t.Fatalf("expected syntax error")
	}
	if _, err := session.Eval("local unbound = y;"); err == nil {
		t.Fatalf("expected unbound variable error")
	}
	out, err := session.Eval("{ double: x * 2 }")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if want := "{\n  \"double\": 4\n}\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
	if len(session.locals) != 1 {
		t.Fatalf("expected failed binding to be dropped, got %v", session.locals)
	}
}

func TestLintCommand(t *testing.T) {
	dir := t.TempDir()
	clean := filepath.Join(dir, "clean.jsonnet")
	warn := filepath.Join(dir, "warn.jsonnet")
	bad := filepath.Join(dir, "bad.jsonnet")
	writeFile(t, clean, `local x = 1; { a: x }`)
	writeFile(t, warn, `local unused = 1; {}`)
	writeFile(t, bad, `{ a: self.b + nope }`)

	if code, out, errOut := captureCLI(t, "lint", clean, warn); code != 0 || !strings.Contains(out, "warning: unused local: unused") {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}
	if code, _, _ := captureCLI(t, "lint", "--strict", warn); code != 1 {
		t.Fatalf("expected --strict to fail on warnings, got %d", code)
	}
	code, out, _ := captureCLI(t, "lint", bad)
	if code != 1 || !strings.Contains(out, bad+":1:") || !strings.Contains(out, "error: variable is not defined: nope") {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := captureCLI(t, "version")
	if code != 0 || out != cliToolVersion+"\n" {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
}
