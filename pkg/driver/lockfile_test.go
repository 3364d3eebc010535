package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockfileName)

	lock := NewLockfile(dir, "jsonnet test")
	lock.Put(&LockedPackage{Name: "zeta", Version: "local", Source: "path:../zeta", Checksum: "sha256:01"})
	lock.Put(&LockedPackage{Name: "alpha", Version: "v1@abc", Source: "git+https://example.com/a.git@abc", Checksum: "sha256:02"})
	lock.Put(&LockedPackage{Name: "zeta", Version: "local", Source: "path:../zeta", Checksum: "sha256:03"})

	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "packages:\n  - name: alpha\n") {
		t.Fatalf("unexpected lockfile layout:\n%s", data)
	}

	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if !loaded.Equal(lock) {
		t.Fatalf("round trip mismatch: %v", pretty.Diff(lock, loaded))
	}
	zeta, ok := loaded.Find("zeta")
	if !ok || zeta.Checksum != "sha256:03" {
		t.Fatalf("zeta = %# v", pretty.Formatter(zeta))
	}
	if _, ok := loaded.Find("missing"); ok {
		t.Fatalf("unexpected entry for missing package")
	}
}

func TestLoadLockfileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadLockfile(filepath.Join(dir, LockfileName)); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	path := filepath.Join(dir, LockfileName)
	writeFile(t, path, "root: x\nextra: true\n")
	if _, err := LoadLockfile(path); err == nil || !strings.Contains(err.Error(), "extra") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLockfileVerify(t *testing.T) {
	vendor := t.TempDir()
	writeFile(t, filepath.Join(vendor, "lib", "a.libsonnet"), "1")
	sum, err := dirChecksum(filepath.Join(vendor, "lib"))
	if err != nil {
		t.Fatalf("dirChecksum: %v", err)
	}
	lock := NewLockfile(vendor, "jsonnet test")
	lock.Put(&LockedPackage{Name: "lib", Version: "local", Source: "path:lib", Checksum: sum})
	if issues := lock.Verify(vendor); len(issues) != 0 {
		t.Fatalf("unexpected issues %v", issues)
	}

	lock.Put(&LockedPackage{Name: "gone", Version: "local", Source: "path:gone", Checksum: sum})
	writeFile(t, filepath.Join(vendor, "lib", "a.libsonnet"), "2")
	want := []string{
		"gone: not installed",
		"lib: checksum " + mustChecksum(t, filepath.Join(vendor, "lib")) + " does not match locked " + sum,
	}
	if diff := pretty.Diff(want, lock.Verify(vendor)); len(diff) > 0 {
		t.Fatalf("verify mismatch: %v", diff)
	}
}

func mustChecksum(t *testing.T, dir string) string {
	t.Helper()
	sum, err := dirChecksum(dir)
	if err != nil {
		t.Fatalf("dirChecksum: %v", err)
	}
	return sum
}
