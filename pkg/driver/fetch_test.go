package driver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/runtime"
)

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == filepath.Join(dir, ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, err = worktree.Add(filepath.ToSlash(rel))
		return err
	}); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Jsonnet CLI",
			Email: "jsonnet@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func evalWithConfig(t *testing.T, cfg *Config, file string) string {
	t.Helper()
	importer := NewFileImporter(cfg.SearchPaths())
	v, err := interpreter.New(cfg.InterpreterConfig(importer)).EvaluateFile(file)
	if err != nil {
		t.Fatalf("evaluate %s: %s", file, runtime.FormatError(err))
	}
	out, err := runtime.ManifestJSON(v, runtime.ManifestOptions{})
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	return out
}

func TestInstallerPathDependency(t *testing.T) {
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(root, "shared", "lib", "shared.libsonnet"), `{ greeting: "hi" }`)
	writeFile(t, filepath.Join(root, "shared", "README"), "not vendored")
	writeFile(t, filepath.Join(appDir, "main.jsonnet"), `(import "shared/shared.libsonnet").greeting`)
	writeFile(t, filepath.Join(appDir, ConfigFileName), `
name: app
dependencies:
  shared:
    path: ../shared
    subdir: lib
`)

	cfg, err := LoadConfig(filepath.Join(appDir, ConfigFileName))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	lock, logs, err := NewInstaller(cfg, "", "jsonnet test").Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(logs) == 0 {
		t.Fatalf("expected install logs")
	}
	pkg, ok := lock.Find("shared")
	if !ok {
		t.Fatalf("missing shared entry: %#v", lock.Packages)
	}
	if pkg.Version != "local" || pkg.Source != "path:"+filepath.Join(root, "shared") || !strings.HasPrefix(pkg.Checksum, "sha256:") {
		t.Fatalf("unexpected locked package %#v", pkg)
	}
	if _, err := os.Stat(filepath.Join(appDir, VendorDir, "shared", "README")); !os.IsNotExist(err) {
		t.Fatalf("expected only the subdir to be vendored, stat err = %v", err)
	}
	if _, err := LoadLockfile(cfg.LockfilePath()); err != nil {
		t.Fatalf("lockfile not written: %v", err)
	}

	if got := evalWithConfig(t, cfg, filepath.Join(appDir, "main.jsonnet")); got != `"hi"` {
		t.Fatalf("got %s", got)
	}

	again, logs, err := NewInstaller(cfg, "", "jsonnet test").Install(context.Background())
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if !again.Equal(lock) {
		t.Fatalf("expected stable lockfile")
	}
	if last := logs[len(logs)-1]; !strings.Contains(last, "up to date") {
		t.Fatalf("expected up to date log, got %q", last)
	}
}

func TestInstallerGitDependency(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "remote")
	writeFile(t, filepath.Join(repoDir, "util.libsonnet"), `{ double(x): x * 2 }`)
	commit := initGitRepo(t, repoDir)

	appDir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(appDir, "main.jsonnet"), `(import "util/util.libsonnet").double(21)`)
	writeFile(t, filepath.Join(appDir, ConfigFileName), `
name: app
dependencies:
  util:
    git: `+repoDir+`
    branch: master
`)

	cfg, err := LoadConfig(filepath.Join(appDir, ConfigFileName))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	lock, _, err := NewInstaller(cfg, filepath.Join(root, "cache"), "jsonnet test").Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	pkg, ok := lock.Find("util")
	if !ok {
		t.Fatalf("missing util entry: %#v", lock.Packages)
	}
	if pkg.Version != "master@"+commit {
		t.Fatalf("version = %q, want master@%s", pkg.Version, commit)
	}
	if pkg.Source != "git+"+repoDir+"@"+commit {
		t.Fatalf("source = %q", pkg.Source)
	}
	if _, err := os.Stat(filepath.Join(appDir, VendorDir, "util", ".git")); !os.IsNotExist(err) {
		t.Fatalf("expected git metadata to be stripped, stat err = %v", err)
	}
	if got := evalWithConfig(t, cfg, filepath.Join(appDir, "main.jsonnet")); got != "42" {
		t.Fatalf("got %s", got)
	}

	// The locked commit is reused from the checkout cache.
	if err := os.RemoveAll(repoDir); err != nil {
		t.Fatalf("remove remote: %v", err)
	}
	again, _, err := NewInstaller(cfg, filepath.Join(root, "cache"), "jsonnet test").Install(context.Background())
	if err != nil {
		t.Fatalf("reinstall from lock: %v", err)
	}
	if !again.Equal(lock) {
		t.Fatalf("expected identical lockfile after reinstall")
	}
}

func TestInstallerMissingPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), "name: app\ndependencies:\n  gone: ./gone\n")
	cfg, err := LoadConfig(filepath.Join(root, ConfigFileName))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, _, err := NewInstaller(cfg, "", "jsonnet test").Install(context.Background()); err == nil || !strings.Contains(err.Error(), "dependency gone") {
		t.Fatalf("expected missing path error, got %v", err)
	}
}

func TestGitPinnedVersion(t *testing.T) {
	cases := []struct {
		descriptor, commit, want string
	}{
		{"", "abc", "abc"},
		{"abc", "abc", "abc"},
		{"v1.0.0", "abc", "v1.0.0@abc"},
		{"main", "", "main"},
	}
	for _, tc := range cases {
		if got := gitPinnedVersion(tc.descriptor, tc.commit); got != tc.want {
			t.Fatalf("gitPinnedVersion(%q, %q) = %q, want %q", tc.descriptor, tc.commit, got, tc.want)
		}
	}
}
