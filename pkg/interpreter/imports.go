package interpreter

import (
	"errors"
	"fmt"
	"path"
	"unicode/utf8"

	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/parser"
	"jsonnet/interpreter-go/pkg/runtime"
)

// SourceID identifies a resolved import. Two imports resolving to the same
// id share one evaluation.
type SourceID string

// Importer locates and loads imported files.
type Importer interface {
	// Resolve maps an import path, as written in the file from, to an id.
	Resolve(from, path string) (SourceID, error)
	Load(id SourceID) ([]byte, error)
}

// MemoryImporter serves imports from an in-memory map keyed by
// slash-separated path.
type MemoryImporter struct {
	Files map[string]string
}

func (m *MemoryImporter) Resolve(from, p string) (SourceID, error) {
	candidates := []string{p}
	if !path.IsAbs(p) && from != "" {
		candidates = []string{path.Join(path.Dir(from), p), p}
	}
	for _, c := range candidates {
		if _, ok := m.Files[c]; ok {
			return SourceID(c), nil
		}
	}
	return "", runtime.NewError(runtime.ErrImportNotFound, "couldn't open import %q: no match locally or in the library search paths", p)
}

func (m *MemoryImporter) Load(id SourceID) ([]byte, error) {
	data, ok := m.Files[string(id)]
	if !ok {
		return nil, runtime.NewError(runtime.ErrImportNotFound, "couldn't open import %q", string(id))
	}
	return []byte(data), nil
}

type importCache struct {
	importer Importer
	code     map[SourceID]*runtime.Thunk
	text     map[SourceID]string
	binary   map[SourceID][]byte
}

func newImportCache(importer Importer) *importCache {
	return &importCache{
		importer: importer,
		code:     make(map[SourceID]*runtime.Thunk),
		text:     make(map[SourceID]string),
		binary:   make(map[SourceID][]byte),
	}
}

func (c *importCache) resolve(from, p string) (SourceID, error) {
	if c.importer == nil {
		return "", runtime.NewError(runtime.ErrImportNotFound, "couldn't open import %q: no importer configured", p)
	}
	id, err := c.importer.Resolve(from, p)
	if err != nil {
		var rerr *runtime.Error
		if errors.As(err, &rerr) {
			return "", rerr
		}
		return "", runtime.WrapError(runtime.ErrImportNotFound, err, "couldn't open import %q", p)
	}
	return id, nil
}

func (c *importCache) load(id SourceID) ([]byte, error) {
	data, err := c.importer.Load(id)
	if err != nil {
		var rerr *runtime.Error
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		return nil, runtime.WrapError(runtime.ErrImportIO, err, "reading %s", string(id))
	}
	return data, nil
}

func (i *Interpreter) evaluateImport(n *ast.ImportExpression) (runtime.Value, error) {
	from := n.Span().File
	var (
		v   runtime.Value
		err error
	)
	switch n.Kind {
	case ast.ImportString:
		v, err = i.importString(from, n.Path)
	case ast.ImportBinary:
		v, err = i.importBinary(from, n.Path)
	default:
		v, err = i.importCode(from, n.Path)
	}
	if err != nil {
		return nil, runtime.AddFrame(err, n.Span(), fmt.Sprintf("%s %q", n.Kind, n.Path))
	}
	return v, nil
}

// importCode evaluates an imported file once per resolved id.
func (i *Interpreter) importCode(from, p string) (runtime.Value, error) {
	id, err := i.imports.resolve(from, p)
	if err != nil {
		return nil, err
	}
	th, ok := i.imports.code[id]
	if !ok {
		th = runtime.NewThunk(func() (runtime.Value, error) {
			data, err := i.imports.load(id)
			if err != nil {
				return nil, err
			}
			if !utf8.Valid(data) {
				return nil, runtime.NewError(runtime.ErrImportBadFileUTF8, "import %s is not valid UTF-8", string(id))
			}
			expr, err := parser.Parse(string(id), data)
			if err != nil {
				var perr *parser.ParseError
				if errors.As(err, &perr) {
					return nil, runtime.WrapError(runtime.ErrImportSyntaxError, err, "").WithFrame(perr.Span, "")
				}
				return nil, runtime.WrapError(runtime.ErrImportSyntaxError, err, "")
			}
			if err := i.enter(); err != nil {
				return nil, err
			}
			defer i.leave()
			return i.evaluateExpression(expr, i.rootContext(string(id)))
		})
		i.imports.code[id] = th
	}
	return th.Force()
}

func (i *Interpreter) importString(from, p string) (runtime.Value, error) {
	id, err := i.imports.resolve(from, p)
	if err != nil {
		return nil, err
	}
	if s, ok := i.imports.text[id]; ok {
		return runtime.NewString(s), nil
	}
	data, err := i.imports.load(id)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, runtime.NewError(runtime.ErrImportBadFileUTF8, "import %s is not valid UTF-8", string(id))
	}
	i.imports.text[id] = string(data)
	return runtime.NewString(string(data)), nil
}

func (i *Interpreter) importBinary(from, p string) (runtime.Value, error) {
	id, err := i.imports.resolve(from, p)
	if err != nil {
		return nil, err
	}
	data, ok := i.imports.binary[id]
	if !ok {
		if data, err = i.imports.load(id); err != nil {
			return nil, err
		}
		i.imports.binary[id] = data
	}
	return runtime.NewBytesArray(data), nil
}
