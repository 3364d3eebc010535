package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/manifest"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimLeft(contents, "\n")), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	writeFile(t, path, `
name: site
jpath:
  - lib
  - /opt/jsonnet
ext_str:
  env: prod
ext_code:
  replicas: "2 + 1"
tla_str:
  region: eu
max_stack: 200
preserve_order: true
output: YAML
dependencies:
  local: ../shared
  kube:
    git: https://example.com/kube.git
    tag: v1.2.0
    subdir: lib
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "site" || cfg.MaxStack != 200 || !cfg.PreserveOrder || cfg.Output != manifest.FormatYAML {
		t.Fatalf("unexpected config %# v", pretty.Formatter(cfg))
	}
	wantPaths := []string{filepath.Join(dir, "lib"), "/opt/jsonnet", filepath.Join(dir, VendorDir)}
	if diff := pretty.Diff(wantPaths, cfg.SearchPaths()); len(diff) > 0 {
		t.Fatalf("search paths mismatch: %v", diff)
	}
	wantDeps := map[string]*DependencySpec{
		"local": {Path: "../shared"},
		"kube":  {Git: "https://example.com/kube.git", Tag: "v1.2.0", Subdir: "lib"},
	}
	if diff := pretty.Diff(wantDeps, cfg.Dependencies); len(diff) > 0 {
		t.Fatalf("dependencies mismatch: %v", diff)
	}
	if diff := pretty.Diff([]string{"kube", "local"}, cfg.DependencyNames()); len(diff) > 0 {
		t.Fatalf("dependency names mismatch: %v", diff)
	}
	if cfg.LockfilePath() != filepath.Join(dir, LockfileName) {
		t.Fatalf("lockfile path = %s", cfg.LockfilePath())
	}
}

func TestConfigDrivesInterpreter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	writeFile(t, path, `
name: site
ext_str:
  env: prod
ext_code:
  replicas: "2 + 1"
tla_code:
  scale: "10"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	interp := interpreter.New(cfg.InterpreterConfig(nil))
	v, err := interp.EvaluateSnippet("main.jsonnet", `function(scale) [std.extVar("env"), std.extVar("replicas") * scale]`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	out, err := manifest.Render(v, manifest.FormatJSON, manifest.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "[\"prod\", 30]\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	writeFile(t, path, `
max_stack: -1
output: toml
ext_str:
  bad-name: x
  dup: a
ext_code:
  dup: "1"
dependencies:
  empty: {}
  both:
    git: https://example.com/x.git
    path: ../x
    rev: abc
  noref:
    git: https://example.com/y.git
  pinned:
    path: ../z
    branch: main
  escape:
    path: ../w
    subdir: ../../etc
`)

	_, err := LoadConfig(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []string{
		"dependencies.both: git and path sources are mutually exclusive",
		"dependencies.both: path dependencies cannot specify rev, tag, or branch",
		"dependencies.empty: must specify git or path",
		"dependencies.escape: subdir \"../../etc\" must stay inside the dependency",
		"dependencies.noref: git dependencies require exactly one of rev, tag, or branch",
		"dependencies.pinned: path dependencies cannot specify rev, tag, or branch",
		"ext_str.bad-name: name must be an identifier",
		"external variable \"dup\" is set by both ext_str and ext_code",
		"max_stack must not be negative, got -1",
		"name must be provided",
		"output must be json or yaml, got \"toml\"",
	}
	if diff := pretty.Diff(want, verr.Issues); len(diff) > 0 {
		t.Fatalf("issues mismatch:\n%s\n%v", verr.Error(), diff)
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	writeFile(t, path, "name: site\nindent: 4\n")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "indent") {
		t.Fatalf("expected unknown field error, got %v", err)
	}

	writeFile(t, path, "")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty config error, got %v", err)
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ConfigFileName)
	writeFile(t, path, "name: site\n")
	nested := filepath.Join(root, "envs", "prod")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if found != path {
		t.Fatalf("found %s, want %s", found, path)
	}

	if _, err := FindConfig(t.TempDir()); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}
