package driver

import (
	"path/filepath"
	"testing"

	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/runtime"
)

func TestFileImporterSearchOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "main.jsonnet"), `local lib = import "lib.libsonnet"; local util = import "util.libsonnet"; [lib, util]`)
	writeFile(t, filepath.Join(root, "app", "lib.libsonnet"), `"local"`)
	writeFile(t, filepath.Join(root, "first", "lib.libsonnet"), `"first"`)
	writeFile(t, filepath.Join(root, "first", "util.libsonnet"), `"first-util"`)
	writeFile(t, filepath.Join(root, "second", "util.libsonnet"), `"second-util"`)

	importer := NewFileImporter([]string{
		filepath.Join(root, "first"),
		filepath.Join(root, "second"),
		filepath.Join(root, "first"),
	})
	if got := len(importer.SearchPaths()); got != 2 {
		t.Fatalf("expected duplicate search paths to collapse, got %d", got)
	}

	interp := interpreter.New(interpreter.Config{Importer: importer})
	v, err := interp.EvaluateFile(filepath.Join(root, "app", "main.jsonnet"))
	if err != nil {
		t.Fatalf("evaluate: %s", runtime.FormatError(err))
	}
	out, err := runtime.ManifestJSON(v, runtime.ManifestOptions{})
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if want := `["local", "first-util"]`; out != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestFileImporterErrors(t *testing.T) {
	root := t.TempDir()
	importer := NewFileImporter(nil)

	if _, err := importer.Resolve(filepath.Join(root, "main.jsonnet"), "nope.libsonnet"); !runtime.IsKind(err, runtime.ErrImportNotFound) {
		t.Fatalf("expected import not found, got %v", err)
	}
	if _, err := importer.Load(interpreter.SourceID(filepath.Join(root, "gone.jsonnet"))); !runtime.IsKind(err, runtime.ErrImportIO) {
		t.Fatalf("expected import io error, got %v", err)
	}

	writeFile(t, filepath.Join(root, "data.txt"), "hello")
	id, err := importer.Resolve(filepath.Join(root, "main.jsonnet"), "data.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(id) != filepath.Join(root, "data.txt") {
		t.Fatalf("resolved to %s", id)
	}
	first, err := importer.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	writeFile(t, filepath.Join(root, "data.txt"), "changed")
	second, err := importer.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(first) != "hello" || string(second) != "hello" {
		t.Fatalf("expected cached contents, got %q then %q", first, second)
	}
}
