// Package fs provides filesystem operations that respect sandbox
// boundaries. Applets should use this package instead of direct os
// calls.
package fs

import (
	"os"

	"github.com/twbaty/go-winix/pkg/sandbox"
)

// Open opens a file for reading.
func Open(path string) (*os.File, error) {
	return sandbox.Open(path)
}

// Create creates a file for writing.
func Create(path string) (*os.File, error) {
	return sandbox.Create(path)
}

// ReadFile reads an entire file.
func ReadFile(path string) ([]byte, error) {
	return sandbox.ReadFile(path)
}

// Remove removes a file or empty directory.
func Remove(path string) error {
	return sandbox.Remove(path)
}

// Rename renames a file.
func Rename(oldpath, newpath string) error {
	return sandbox.Rename(oldpath, newpath)
}
