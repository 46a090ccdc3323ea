package sandbox_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/twbaty/go-winix/pkg/sandbox"
)

func TestSandboxDisabled(t *testing.T) {
	sandbox.Disable()

	// Should allow all operations when disabled
	if _, err := sandbox.Stat(os.TempDir()); err != nil {
		t.Errorf("expected no error when sandbox disabled, got %v", err)
	}
}

func TestSandboxEnabled(t *testing.T) {
	dir := t.TempDir()

	err := sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead | sandbox.PermWrite},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()

	// Should allow access to allowed path
	testFile := filepath.Join(dir, "test.txt")
	if err := sandbox.WriteFile(testFile, []byte("hello"), 0644); err != nil {
		t.Errorf("expected write to succeed in allowed path, got %v", err)
	}

	// Should deny access to other paths
	if _, err := sandbox.Stat("/etc/passwd"); !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for /etc/passwd, got %v", err)
	}
}

func TestSandboxReadOnly(t *testing.T) {
	dir := t.TempDir()

	seed := filepath.Join(dir, "seed.txt")
	if err := os.WriteFile(seed, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	err := sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()

	if _, err := sandbox.ReadFile(seed); err != nil {
		t.Errorf("expected read to succeed in read-only path, got %v", err)
	}
	if err := sandbox.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644); !errors.Is(err, sandbox.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly for write, got %v", err)
	}
	if err := sandbox.Remove(seed); !errors.Is(err, sandbox.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly for remove, got %v", err)
	}
}

func TestSandboxRename(t *testing.T) {
	dir := t.TempDir()

	err := sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead | sandbox.PermWrite},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()

	src := filepath.Join(dir, "a.txt")
	if err := sandbox.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := sandbox.Rename(src, filepath.Join(dir, "b.txt")); err != nil {
		t.Errorf("rename within sandbox failed: %v", err)
	}
	if err := sandbox.Rename(filepath.Join(dir, "b.txt"), "/tmp-outside/b.txt"); err == nil {
		t.Error("expected rename outside sandbox to fail")
	}
}
