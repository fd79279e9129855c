// Package fsutil provides the file-level plumbing shared by downloaders,
// fixers and actions: scoped temporary directories, MIME detection,
// hashing, timestamp preservation and trash handling.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scope is a temporary directory that is removed when closed unless the
// caller opted to keep it. Every fixer/action invocation gets its own.
type Scope struct {
	dir  string
	keep bool
}

// NewScope creates a fresh temporary directory under base. An empty base
// falls back to the OS temp directory.
func NewScope(base, pattern string) (*Scope, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create scratch base: %w", err)
		}
	}
	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return &Scope{dir: dir}, nil
}

// Dir returns the scope's directory path.
func (s *Scope) Dir() string { return s.dir }

// Path joins name onto the scope directory.
func (s *Scope) Path(name string) string { return filepath.Join(s.dir, name) }

// Keep marks the directory to survive Close.
func (s *Scope) Keep() { s.keep = true }

// Close removes the directory and everything beneath it unless Keep was
// called.
func (s *Scope) Close() error {
	if s.keep {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// TempFile creates a file in a fresh scope and returns both. The caller
// closes the scope once the file has been consumed.
func TempFile(base, pattern string) (*os.File, *Scope, error) {
	scope, err := NewScope(base, "linkhoard-*")
	if err != nil {
		return nil, nil, err
	}
	f, err := os.CreateTemp(scope.Dir(), pattern)
	if err != nil {
		_ = scope.Close()
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return f, scope, nil
}
