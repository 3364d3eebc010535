// Package manifest renders evaluated values as output documents.
package manifest

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

// Format names an output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Options controls rendering.
type Options struct {
	// Indent is the JSON indentation string. YAML always indents by two
	// spaces.
	Indent        string
	PreserveOrder bool
}

// ParseFormat validates a format name. The empty name selects JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("manifest: unsupported output format %q", name)
}

// Render manifests v in the given format. The result ends with a newline.
func Render(v runtime.Value, format Format, opts Options) (string, error) {
	switch format {
	case FormatYAML:
		return YAML(v, opts)
	default:
		out, err := runtime.ManifestJSON(v, runtime.ManifestOptions{Indent: opts.Indent, PreserveOrder: opts.PreserveOrder})
		if err != nil {
			return "", err
		}
		return out + "\n", nil
	}
}

// YAML renders v as a single YAML document.
func YAML(v runtime.Value, opts Options) (string, error) {
	node, err := ToNode(v, opts.PreserveOrder)
	if err != nil {
		return "", err
	}
	return encode(node)
}

// YAMLStream renders each element of an array as its own document, each
// introduced by `---`.
func YAMLStream(v runtime.Value, opts Options) (string, error) {
	arr, ok := v.(*runtime.ArrayValue)
	if !ok {
		return "", runtime.NewError(runtime.ErrTypeMismatch, "yaml stream output requires an array, got %s", runtime.TypeName(v))
	}
	var b strings.Builder
	for i := 0; i < arr.Len(); i++ {
		elem, err := arr.Get(i)
		if err != nil {
			return "", runtime.AddFrame(err, ast.Span{}, fmt.Sprintf("document <%d> evaluation", i))
		}
		node, err := ToNode(elem, opts.PreserveOrder)
		if err != nil {
			return "", runtime.AddFrame(err, ast.Span{}, fmt.Sprintf("document <%d> manifestification", i))
		}
		doc, err := encode(node)
		if err != nil {
			return "", err
		}
		b.WriteString("---\n")
		b.WriteString(doc)
	}
	if arr.Len() > 0 {
		b.WriteString("...\n")
	}
	return b.String(), nil
}

func encode(node *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", fmt.Errorf("manifest: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("manifest: encoder close: %w", err)
	}
	return buf.String(), nil
}

// ToNode converts v into a yaml.v3 node tree, forcing every reachable
// visible field and element. Hidden fields are skipped.
func ToNode(v runtime.Value, preserveOrder bool) (*yaml.Node, error) {
	switch val := v.(type) {
	case runtime.NullValue:
		return scalar("!!null", "null"), nil
	case runtime.BoolValue:
		if val.Val {
			return scalar("!!bool", "true"), nil
		}
		return scalar("!!bool", "false"), nil
	case runtime.NumberValue:
		tag := "!!float"
		if _, ok := val.Int(); ok {
			tag = "!!int"
		}
		return scalar(tag, runtime.FormatJSONNumber(val.Val)), nil
	case runtime.StringValue:
		node := scalar("!!str", val.Str())
		if strings.Contains(node.Value, "\n") {
			node.Style = yaml.LiteralStyle
		}
		return node, nil
	case *runtime.ArrayValue:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if val.Len() == 0 {
			node.Style = yaml.FlowStyle
		}
		for i := 0; i < val.Len(); i++ {
			elem, err := val.Get(i)
			if err != nil {
				return nil, runtime.AddFrame(err, ast.Span{}, fmt.Sprintf("elem <%d> evaluation", i))
			}
			child, err := ToNode(elem, preserveOrder)
			if err != nil {
				return nil, runtime.AddFrame(err, ast.Span{}, fmt.Sprintf("elem <%d> manifestification", i))
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case *runtime.ObjectValue:
		names, err := val.Fields(false, preserveOrder)
		if err != nil {
			return nil, err
		}
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if len(names) == 0 {
			node.Style = yaml.FlowStyle
		}
		for _, name := range names {
			field, _, err := val.Get(name)
			if err != nil {
				return nil, runtime.AddFrame(err, ast.Span{}, fmt.Sprintf("field <%s> evaluation", name))
			}
			child, err := ToNode(field, preserveOrder)
			if err != nil {
				return nil, runtime.AddFrame(err, ast.Span{}, fmt.Sprintf("field <%s> manifestification", name))
			}
			node.Content = append(node.Content, scalar("!!str", name), child)
		}
		return node, nil
	case *runtime.FunctionValue, *runtime.NativeFunction:
		return nil, runtime.NewError(runtime.ErrManifestFunction, "tried to manifest function")
	}
	return nil, runtime.NewError(runtime.ErrRuntime, "cannot manifest %T", v)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
