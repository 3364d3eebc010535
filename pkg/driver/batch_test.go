package driver

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/manifest"
	"jsonnet/interpreter-go/pkg/runtime"
)

func TestBatchRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "common.libsonnet"), `{ base: 10 }`)
	files := make([]string, 0, 6)
	for i, src := range []string{
		`(import "common.libsonnet").base + 1`,
		`{ v: (import "common.libsonnet").base * 2 }`,
		`error "broken"`,
		`[std.extVar("env")]`,
		`std.length("four")`,
		`{ a: 1 } + { b: 2 }`,
	} {
		path := filepath.Join(root, string(rune('a'+i))+".jsonnet")
		writeFile(t, path, src)
		files = append(files, path)
	}

	b := &Batch{
		Workers: 2,
		Config: interpreter.Config{
			Importer: NewFileImporter([]string{filepath.Join(root, "lib")}),
			ExtVars:  map[string]interpreter.ExtVar{"env": interpreter.StringVar("ci")},
		},
		Format: manifest.FormatJSON,
	}
	results := b.Run(context.Background(), files)
	want := []string{"11\n", "{\"v\": 20}\n", "", "[\"ci\"]\n", "4\n", "{\"a\": 1, \"b\": 2}\n"}
	for i, r := range results {
		if r.File != files[i] {
			t.Fatalf("result %d is for %s, want %s", i, r.File, files[i])
		}
		if i == 2 {
			if r.Err == nil || runtime.AsError(r.Err).Message != "broken" {
				t.Fatalf("expected error result, got %#v", r)
			}
			continue
		}
		if r.Err != nil {
			t.Fatalf("%s: %s", r.File, runtime.FormatError(r.Err))
		}
		if r.Output != want[i] {
			t.Fatalf("%s = %q, want %q", r.File, r.Output, want[i])
		}
	}
	if err := FirstError(results); err == nil || !strings.HasPrefix(err.Error(), files[2]+": ") {
		t.Fatalf("FirstError = %v", err)
	}
}

func TestRunBatchRecoversPanics(t *testing.T) {
	var calls atomic.Int32
	results := runBatch(context.Background(), []string{"ok", "boom"}, 0, func(ctx context.Context, file string) (string, error) {
		calls.Add(1)
		if file == "boom" {
			panic("kaboom")
		}
		return "fine", nil
	})
	if calls.Load() != 2 {
		t.Fatalf("expected both tasks to run, got %d", calls.Load())
	}
	if results[0].Output != "fine" || results[0].Err != nil {
		t.Fatalf("unexpected first result %#v", results[0])
	}
	if !runtime.IsKind(results[1].Err, runtime.ErrRuntime) || !strings.Contains(results[1].Err.Error(), "kaboom") {
		t.Fatalf("expected recovered panic, got %v", results[1].Err)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := runBatch(ctx, []string{"a", "b"}, 1, func(ctx context.Context, file string) (string, error) {
		return file, ctx.Err()
	})
	for _, r := range results {
		if r.Err == nil {
			t.Fatalf("expected cancellation for %s", r.File)
		}
	}
}
