package driver

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/golang/glog"

	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/manifest"
	"jsonnet/interpreter-go/pkg/runtime"
)

// BatchTask renders one file.
type BatchTask func(ctx context.Context, file string) (string, error)

// BatchResult is the outcome of one file in a batch.
type BatchResult struct {
	File   string
	Output string
	Err    error
}

// Batch evaluates many files concurrently. Each file gets its own
// Interpreter; the importer's file cache is shared.
type Batch struct {
	// Workers bounds the number of files evaluated at once; values below one
	// select one worker per file.
	Workers  int
	Config   interpreter.Config
	Format   manifest.Format
	Manifest manifest.Options
}

// Run renders every file and returns the results in input order. Cancelling
// ctx stops files that have not started yet.
func (b *Batch) Run(ctx context.Context, files []string) []BatchResult {
	return runBatch(ctx, files, b.Workers, b.render)
}

func (b *Batch) render(ctx context.Context, file string) (string, error) {
	interp := interpreter.New(b.Config)
	v, err := interp.EvaluateFile(file)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return manifest.Render(v, b.Format, b.Manifest)
}

func runBatch(ctx context.Context, files []string, workers int, task BatchTask) []BatchResult {
	results := make([]BatchResult, len(files))
	if workers < 1 || workers > len(files) {
		workers = len(files)
	}
	slots := make(chan struct{}, max(workers, 1))
	var wg sync.WaitGroup
	for idx, file := range files {
		results[idx].File = file
		select {
		case <-ctx.Done():
			results[idx].Err = ctx.Err()
			continue
		case slots <- struct{}{}:
		}
		wg.Add(1)
		go func(idx int, file string) {
			defer wg.Done()
			defer func() { <-slots }()
			glog.V(2).Infof("evaluating %s", file)
			out, err := safeInvoke(ctx, file, task)
			results[idx].Output, results[idx].Err = out, err
		}(idx, file)
	}
	wg.Wait()
	return results
}

// safeInvoke runs task, converting a panic into an internal error.
func safeInvoke(ctx context.Context, file string, task BatchTask) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("panic evaluating %s: %v\n%s", file, r, debug.Stack())
			err = runtime.NewError(runtime.ErrRuntime, "internal error: %v", r)
		}
	}()
	out, err = task(ctx, file)
	return out, err
}

// FirstError returns the first failed result, formatted with its file name.
func FirstError(results []BatchResult) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%s: %w", r.File, r.Err)
		}
	}
	return nil
}
