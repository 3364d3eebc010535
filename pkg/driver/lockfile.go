package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Lockfile pins every vendored dependency of a project. It is stored as
// jsonnet.lock next to the project file.
type Lockfile struct {
	Path      string           `yaml:"-"`
	Root      string           `yaml:"root"`
	Generated string           `yaml:"generated"`
	Tool      string           `yaml:"tool"`
	Packages  []*LockedPackage `yaml:"packages"`
}

// LockedPackage records where a dependency came from and what was copied.
type LockedPackage struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Source   string `yaml:"source"`
	Checksum string `yaml:"checksum"`
}

func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:      strings.TrimSpace(root),
		Generated: timestamp(),
		Tool:      strings.TrimSpace(tool),
		Packages:  []*LockedPackage{},
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (l *Lockfile) index(name string) int {
	if l == nil {
		return -1
	}
	return slices.IndexFunc(l.Packages, func(p *LockedPackage) bool {
		return p != nil && p.Name == name
	})
}

// Find returns the entry pinned for name.
func (l *Lockfile) Find(name string) (*LockedPackage, bool) {
	if i := l.index(name); i >= 0 {
		return l.Packages[i], true
	}
	return nil, false
}

// Put stores pkg, replacing any entry with the same name. Entries stay
// sorted by name.
func (l *Lockfile) Put(pkg *LockedPackage) {
	if i := l.index(pkg.Name); i >= 0 {
		l.Packages[i] = pkg
		return
	}
	l.Packages = append(l.Packages, pkg)
	l.tidy()
}

// Equal ignores the generation metadata.
func (l *Lockfile) Equal(other *Lockfile) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.Root == other.Root && slices.EqualFunc(l.Packages, other.Packages, func(a, b *LockedPackage) bool {
		return *a == *b
	})
}

// Verify recomputes the checksum of every vendored package under vendorDir
// and returns one issue per package that is missing or was modified.
func (l *Lockfile) Verify(vendorDir string) []string {
	var issues []string
	for _, pkg := range l.Packages {
		dir := filepath.Join(vendorDir, pkg.Name)
		if _, err := os.Stat(dir); err != nil {
			issues = append(issues, fmt.Sprintf("%s: not installed", pkg.Name))
			continue
		}
		sum, err := dirChecksum(dir)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", pkg.Name, err))
			continue
		}
		if sum != pkg.Checksum {
			issues = append(issues, fmt.Sprintf("%s: checksum %s does not match locked %s", pkg.Name, sum, pkg.Checksum))
		}
	}
	return issues
}

// LoadLockfile reads a lockfile. A missing file yields an error satisfying
// os.IsNotExist.
func LoadLockfile(path string) (*Lockfile, error) {
	abs, err := absLockPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	lock := &Lockfile{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(lock); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}
	lock.Path = abs
	lock.tidy()
	return lock, nil
}

// WriteLockfile stores lock at path, or at lock.Path when path is empty.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		path = lock.Path
	}
	abs, err := absLockPath(path)
	if err != nil {
		return err
	}
	if lock.Generated == "" {
		lock.Generated = timestamp()
	}
	lock.Path = abs
	lock.tidy()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err = enc.Encode(lock)
	if err == nil {
		err = enc.Close()
	}
	if err != nil {
		return fmt.Errorf("lockfile: encode %s: %w", abs, err)
	}
	return os.WriteFile(abs, buf.Bytes(), 0o644)
}

func absLockPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("lockfile: no path given")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("lockfile: %w", err)
	}
	return abs, nil
}

func (l *Lockfile) tidy() {
	l.Root = strings.TrimSpace(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	l.Generated = strings.TrimSpace(l.Generated)
	l.Packages = slices.DeleteFunc(l.Packages, func(p *LockedPackage) bool { return p == nil })
	for _, p := range l.Packages {
		for _, field := range []*string{&p.Name, &p.Version, &p.Source, &p.Checksum} {
			*field = strings.TrimSpace(*field)
		}
	}
	slices.SortStableFunc(l.Packages, func(a, b *LockedPackage) int {
		return strings.Compare(a.Name, b.Name)
	})
}
