package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/manifest"
)

// ConfigFileName is the project file searched for by FindConfig.
const ConfigFileName = "jsonnet.yml"

// LockfileName sits next to the project file.
const LockfileName = "jsonnet.lock"

// VendorDir holds installed dependencies, relative to the project root.
const VendorDir = "vendor"

var ErrConfigNotFound = errors.New(ConfigFileName + " not found")

// Config represents the parsed contents of jsonnet.yml.
type Config struct {
	Path          string
	Name          string
	JPath         []string
	ExtStr        map[string]string
	ExtCode       map[string]string
	TLAStr        map[string]string
	TLACode       map[string]string
	MaxStack      int
	PreserveOrder bool
	Output        manifest.Format
	Dependencies  map[string]*DependencySpec

	rawOutput string
}

// DependencySpec describes where a vendored library comes from.
type DependencySpec struct {
	Git    string
	Rev    string
	Tag    string
	Branch string
	Path   string
	Subdir string
}

// ValidationError aggregates config validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Root is the directory holding the project file.
func (c *Config) Root() string {
	return filepath.Dir(c.Path)
}

// LockfilePath is the jsonnet.lock path for this project.
func (c *Config) LockfilePath() string {
	return filepath.Join(c.Root(), LockfileName)
}

// SearchPaths lists the jpath entries resolved against the project root,
// followed by the vendor directory.
func (c *Config) SearchPaths() []string {
	paths := make([]string, 0, len(c.JPath)+1)
	for _, p := range c.JPath {
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.Root(), p)
		}
		paths = append(paths, filepath.Clean(p))
	}
	return append(paths, filepath.Join(c.Root(), VendorDir))
}

// DependencyNames returns the declared dependency names in sorted order.
func (c *Config) DependencyNames() []string {
	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InterpreterConfig builds an evaluator configuration from the project
// settings.
func (c *Config) InterpreterConfig(importer interpreter.Importer) interpreter.Config {
	cfg := interpreter.Config{
		MaxStack:      c.MaxStack,
		PreserveOrder: c.PreserveOrder,
		Importer:      importer,
		ExtVars:       make(map[string]interpreter.ExtVar, len(c.ExtStr)+len(c.ExtCode)),
		TLAs:          make(map[string]interpreter.ExtVar, len(c.TLAStr)+len(c.TLACode)),
	}
	for name, v := range c.ExtStr {
		cfg.ExtVars[name] = interpreter.StringVar(v)
	}
	for name, v := range c.ExtCode {
		cfg.ExtVars[name] = interpreter.CodeVar(v)
	}
	for name, v := range c.TLAStr {
		cfg.TLAs[name] = interpreter.StringVar(v)
	}
	for name, v := range c.TLACode {
		cfg.TLAs[name] = interpreter.CodeVar(v)
	}
	return cfg
}

// LoadConfig parses jsonnet.yml from disk, returning a validated config.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: %s is empty", absPath)
		}
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}

	cfg := raw.toConfig(absPath)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfig walks from start upwards looking for jsonnet.yml.
func FindConfig(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", ConfigFileName, origin, ErrConfigNotFound)
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	var errs ValidationError
	if c.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if c.MaxStack < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("max_stack must not be negative, got %d", c.MaxStack))
	}
	if format, err := manifest.ParseFormat(c.rawOutput); err != nil {
		errs.Issues = append(errs.Issues, fmt.Sprintf("output must be json or yaml, got %q", c.rawOutput))
	} else {
		c.Output = format
	}
	for i, p := range c.JPath {
		if p == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("jpath[%d] must be a non-empty path", i))
		}
	}
	for group, vars := range map[string]map[string]string{
		"ext_str":  c.ExtStr,
		"ext_code": c.ExtCode,
		"tla_str":  c.TLAStr,
		"tla_code": c.TLACode,
	} {
		for name := range vars {
			if !isIdentifier(name) {
				errs.Issues = append(errs.Issues, fmt.Sprintf("%s.%s: name must be an identifier", group, name))
			}
		}
	}
	for name := range c.ExtStr {
		if _, dup := c.ExtCode[name]; dup {
			errs.Issues = append(errs.Issues, fmt.Sprintf("external variable %q is set by both ext_str and ext_code", name))
		}
	}
	for name := range c.TLAStr {
		if _, dup := c.TLACode[name]; dup {
			errs.Issues = append(errs.Issues, fmt.Sprintf("top-level argument %q is set by both tla_str and tla_code", name))
		}
	}
	for _, name := range c.DependencyNames() {
		for _, issue := range c.Dependencies[name].validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", name, issue))
		}
	}
	sort.Strings(errs.Issues)
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (d *DependencySpec) validate() []string {
	var errs []string
	if d.Git == "" && d.Path == "" {
		errs = append(errs, "must specify git or path")
	}
	if d.Git != "" && d.Path != "" {
		errs = append(errs, "git and path sources are mutually exclusive")
	}
	refs := 0
	for _, ref := range []string{d.Rev, d.Tag, d.Branch} {
		if ref != "" {
			refs++
		}
	}
	if d.Git != "" && refs != 1 {
		errs = append(errs, "git dependencies require exactly one of rev, tag, or branch")
	}
	if d.Path != "" && refs > 0 {
		errs = append(errs, "path dependencies cannot specify rev, tag, or branch")
	}
	if d.Subdir != "" {
		clean := filepath.Clean(d.Subdir)
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			errs = append(errs, fmt.Sprintf("subdir %q must stay inside the dependency", d.Subdir))
		}
	}
	return errs
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

type configFile struct {
	Name          string            `yaml:"name"`
	JPath         stringList        `yaml:"jpath"`
	ExtStr        map[string]string `yaml:"ext_str"`
	ExtCode       map[string]string `yaml:"ext_code"`
	TLAStr        map[string]string `yaml:"tla_str"`
	TLACode       map[string]string `yaml:"tla_code"`
	MaxStack      int               `yaml:"max_stack"`
	PreserveOrder bool              `yaml:"preserve_order"`
	Output        string            `yaml:"output"`
	Dependencies  dependencyMap     `yaml:"dependencies"`
}

type dependencyMap map[string]*DependencySpec

type stringList []string

func (cf configFile) toConfig(path string) *Config {
	return &Config{
		Path:          path,
		Name:          strings.TrimSpace(cf.Name),
		JPath:         cf.JPath.Clone(),
		ExtStr:        cloneStrings(cf.ExtStr),
		ExtCode:       cloneStrings(cf.ExtCode),
		TLAStr:        cloneStrings(cf.TLAStr),
		TLACode:       cloneStrings(cf.TLACode),
		MaxStack:      cf.MaxStack,
		PreserveOrder: cf.PreserveOrder,
		Dependencies:  cloneDependencyMap(cf.Dependencies),
		rawOutput:     strings.TrimSpace(cf.Output),
	}
}

func cloneStrings(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[strings.TrimSpace(k)] = v
	}
	return out
}

func cloneDependencyMap(src dependencyMap) map[string]*DependencySpec {
	out := make(map[string]*DependencySpec, len(src))
	for name, dep := range src {
		if dep == nil {
			continue
		}
		copy := *dep
		out[name] = &copy
	}
	return out
}

func (l stringList) Clone() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			items = append(items, strings.TrimSpace(str))
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("config: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (dm *dependencyMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		*dm = make(dependencyMap)
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("config: dependencies must be a mapping")
	}
	result := make(dependencyMap, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("config: dependency names must be non-empty")
		}
		var dep DependencySpec
		if err := dep.unmarshalYAML(valNode); err != nil {
			return fmt.Errorf("config: dependency %q: %w", key, err)
		}
		result[key] = &dep
	}
	*dm = result
	return nil
}

func (d *DependencySpec) unmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		// A bare string is shorthand for a local path.
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*d = DependencySpec{}
			return nil
		}
		*d = DependencySpec{Path: strings.TrimSpace(value.Value)}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Git    string `yaml:"git"`
			Rev    string `yaml:"rev"`
			Tag    string `yaml:"tag"`
			Branch string `yaml:"branch"`
			Path   string `yaml:"path"`
			Subdir string `yaml:"subdir"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*d = DependencySpec{
			Git:    strings.TrimSpace(raw.Git),
			Rev:    strings.TrimSpace(raw.Rev),
			Tag:    strings.TrimSpace(raw.Tag),
			Branch: strings.TrimSpace(raw.Branch),
			Path:   strings.TrimSpace(raw.Path),
			Subdir: strings.TrimSpace(raw.Subdir),
		}
		return nil
	case yaml.AliasNode:
		return d.unmarshalYAML(value.Alias)
	default:
		return fmt.Errorf("expected string or mapping, found %s", value.ShortTag())
	}
}
