package driver

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"

	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/runtime"
)

// FileImporter resolves imports against the importing file's directory and
// then each search path in order. Loaded files are cached, and one importer
// may be shared by interpreters running on different goroutines.
type FileImporter struct {
	searchPaths []string

	mu    sync.Mutex
	files map[interpreter.SourceID][]byte
}

// NewFileImporter returns an importer over the given library paths.
func NewFileImporter(searchPaths []string) *FileImporter {
	paths := make([]string, 0, len(searchPaths))
	seen := make(map[string]struct{}, len(searchPaths))
	for _, p := range searchPaths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return &FileImporter{searchPaths: paths, files: make(map[interpreter.SourceID][]byte)}
}

// SearchPaths returns the library directories consulted after the importing
// file's own directory.
func (f *FileImporter) SearchPaths() []string {
	return append([]string(nil), f.searchPaths...)
}

func (f *FileImporter) Resolve(from, path string) (interpreter.SourceID, error) {
	var candidates []string
	switch {
	case filepath.IsAbs(path):
		candidates = []string{path}
	case from == "":
		candidates = append(candidates, path)
	default:
		candidates = append(candidates, filepath.Join(filepath.Dir(from), path))
	}
	if !filepath.IsAbs(path) {
		for _, dir := range f.searchPaths {
			candidates = append(candidates, filepath.Join(dir, path))
		}
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", runtime.WrapError(runtime.ErrImportIO, err, "resolving %s", candidate)
		}
		if glog.V(2) {
			glog.Infof("import %q from %q resolved to %s", path, from, abs)
		}
		return interpreter.SourceID(abs), nil
	}
	return "", runtime.NewError(runtime.ErrImportNotFound, "couldn't open import %q: no match locally or in the library search paths", path)
}

func (f *FileImporter) Load(id interpreter.SourceID) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.files[id]; ok {
		return data, nil
	}
	data, err := os.ReadFile(string(id))
	if err != nil {
		return nil, runtime.WrapError(runtime.ErrImportIO, err, "reading %s", string(id))
	}
	glog.V(3).Infof("loaded %s (%d bytes)", id, len(data))
	f.files[id] = data
	return data, nil
}
