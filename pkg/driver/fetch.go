package driver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/golang/glog"
)

// CacheDir is where git checkouts are kept, relative to the vendor directory.
const CacheDir = ".cache"

// Installer vendors the dependencies declared in a Config and records them
// in jsonnet.lock.
type Installer struct {
	config   *Config
	cacheDir string
	tool     string
	logs     []string
}

// NewInstaller returns an installer for cfg. An empty cacheDir selects
// vendor/.cache under the project root.
func NewInstaller(cfg *Config, cacheDir, tool string) *Installer {
	if cacheDir == "" {
		cacheDir = filepath.Join(cfg.Root(), VendorDir, CacheDir)
	}
	return &Installer{config: cfg, cacheDir: cacheDir, tool: tool}
}

// Install fetches every dependency into vendor/<name>, writes the lockfile
// and returns it along with a human-readable log of what happened. Git
// dependencies already pinned in an existing lockfile reuse the locked
// commit when the declared URL has not changed.
func (in *Installer) Install(ctx context.Context) (*Lockfile, []string, error) {
	in.logs = in.logs[:0]
	previous, err := LoadLockfile(in.config.LockfilePath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, in.logs, err
	}

	lock := NewLockfile(in.config.Root(), in.tool)
	for _, name := range in.config.DependencyNames() {
		if err := ctx.Err(); err != nil {
			return nil, in.logs, err
		}
		spec := in.config.Dependencies[name]
		if spec == nil {
			return nil, in.logs, fmt.Errorf("dependency %q has no descriptor", name)
		}
		var locked *LockedPackage
		if previous != nil {
			locked, _ = previous.Find(name)
		}
		pkg, err := in.installDependency(ctx, name, spec, locked)
		if err != nil {
			return nil, in.logs, fmt.Errorf("dependency %s: %w", name, err)
		}
		lock.Put(pkg)
	}

	if previous != nil && previous.Equal(lock) {
		in.logf("lockfile %s is up to date", in.displayPath(in.config.LockfilePath()))
		return previous, in.logs, nil
	}
	if err := WriteLockfile(lock, in.config.LockfilePath()); err != nil {
		return nil, in.logs, err
	}
	in.logf("wrote %s", in.displayPath(lock.Path))
	return lock, in.logs, nil
}

func (in *Installer) installDependency(ctx context.Context, name string, spec *DependencySpec, locked *LockedPackage) (*LockedPackage, error) {
	var (
		srcDir  string
		version string
		source  string
	)
	switch {
	case spec.Path != "":
		path := spec.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(in.config.Root(), path)
		}
		path = filepath.Clean(path)
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("path %s is not a directory", path)
		}
		srcDir = path
		version = "local"
		source = "path:" + in.displayPath(path)
	case spec.Git != "":
		pinned := cloneDependencySpec(spec)
		if commit, ok := lockedCommit(locked, spec.Git); ok {
			pinned.Rev, pinned.Tag, pinned.Branch = commit, "", ""
		}
		baseDir := filepath.Join(in.cacheDir, "git", cacheSegment(name))
		checkout, commit, err := ensureGitCheckout(ctx, baseDir, spec.Git, pinned)
		if err != nil {
			return nil, err
		}
		srcDir = checkout
		version = gitPinnedVersion(describeRef(spec), commit)
		source = fmt.Sprintf("git+%s@%s", spec.Git, commit)
	default:
		return nil, fmt.Errorf("dependency needs git or path")
	}

	if spec.Subdir != "" {
		srcDir = filepath.Join(srcDir, filepath.FromSlash(spec.Subdir))
	}
	target := filepath.Join(in.config.Root(), VendorDir, name)
	if err := vendorCopy(srcDir, target); err != nil {
		return nil, fmt.Errorf("vendor %s: %w", name, err)
	}
	checksum, err := dirChecksum(target)
	if err != nil {
		return nil, err
	}
	in.logf("vendored %s %s into %s", name, version, in.displayPath(target))
	return &LockedPackage{Name: name, Version: version, Source: source, Checksum: checksum}, nil
}

func (in *Installer) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	glog.V(1).Info(msg)
	in.logs = append(in.logs, msg)
}

func (in *Installer) displayPath(path string) string {
	if rel, err := filepath.Rel(in.config.Root(), path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

// lockedCommit extracts the commit from a locked git source when it still
// points at url.
func lockedCommit(locked *LockedPackage, url string) (string, bool) {
	if locked == nil {
		return "", false
	}
	prefix := "git+" + url + "@"
	if !strings.HasPrefix(locked.Source, prefix) {
		return "", false
	}
	commit := strings.TrimPrefix(locked.Source, prefix)
	return commit, commit != ""
}

func cloneDependencySpec(spec *DependencySpec) *DependencySpec {
	clone := *spec
	return &clone
}

func describeRef(spec *DependencySpec) string {
	switch {
	case spec.Tag != "":
		return spec.Tag
	case spec.Branch != "":
		return spec.Branch
	}
	return spec.Rev
}

// ensureGitCheckout clones url and checks out the revision named by spec
// under baseDir/<commit>, returning the checkout directory and commit hash.
// An existing checkout of the same commit is reused.
func ensureGitCheckout(ctx context.Context, baseDir, url string, spec *DependencySpec) (dir, commit string, err error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}
	revision, err := gitRevision(spec)
	if err != nil {
		return "", "", err
	}
	if plumbing.IsHash(spec.Rev) {
		cached := filepath.Join(baseDir, spec.Rev)
		if info, statErr := os.Stat(cached); statErr == nil && info.IsDir() {
			glog.V(2).Infof("reusing checkout %s", cached)
			return cached, spec.Rev, nil
		}
	}

	staging, err := os.MkdirTemp(baseDir, "clone-*")
	if err != nil {
		return "", "", err
	}
	defer func() {
		if err != nil || dir != staging {
			_ = os.RemoveAll(staging)
		}
	}()

	glog.V(1).Infof("cloning %s into %s", url, staging)
	repo, err := git.PlainCloneContext(ctx, staging, false, &git.CloneOptions{URL: url, NoCheckout: true})
	if err != nil {
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}
	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		return "", "", fmt.Errorf("git: unknown revision %s: %w", revision, err)
	}
	commit = hash.String()
	final := filepath.Join(baseDir, commit)
	if _, statErr := os.Stat(final); statErr == nil {
		return final, commit, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", "", err
	}
	if err = wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return "", "", fmt.Errorf("git checkout %s: %w", commit, err)
	}
	if err = os.RemoveAll(filepath.Join(staging, git.GitDirName)); err != nil {
		return "", "", err
	}
	if err = os.Rename(staging, final); err != nil {
		return "", "", err
	}
	return final, commit, nil
}

// gitPinnedVersion renders the version column of a git package:
// "<ref>@<commit>", or just one half when the other is empty or redundant.
func gitPinnedVersion(ref, commit string) string {
	ref, commit = strings.TrimSpace(ref), strings.TrimSpace(commit)
	switch {
	case commit == "":
		return ref
	case ref == "" || ref == commit:
		return commit
	}
	return ref + "@" + commit
}

// gitRevision maps rev, tag or branch onto a revision go-git can resolve in
// a fresh clone, where branches only exist as remote-tracking refs.
func gitRevision(spec *DependencySpec) (plumbing.Revision, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision(plumbing.NewTagReferenceName(tag)), nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision(plumbing.NewRemoteReferenceName("origin", branch)), nil
	}
	return "", fmt.Errorf("git dependency names no rev, tag or branch")
}

func cacheSegment(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', strings.ContainsRune("._-", r):
			return r
		}
		return '_'
	}, name)
}

// vendorCopy replaces dst with a copy of src, leaving out git metadata.
func vendorCopy(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == git.GitDirName {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		if !d.Type().IsRegular() {
			glog.V(2).Infof("skipping %s: not a regular file", p)
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o644)
	})
}

// dirChecksum hashes the relative path and contents of every file under
// path, in lexical walk order.
func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}
