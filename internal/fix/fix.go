// Package fix normalizes downloaded files: container, codec, extension
// and name. Fixers run as an ordered chain; each one sees the previous
// one's output path, and a failing fixer is logged and skipped so a bad
// format rewrite never blocks a later rename.
package fix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/linkhoard/linkhoard/internal/fsutil"
)

// Request is one file entering the chain.
type Request struct {
	Path    string
	Options map[string]any
}

// Result carries the (possibly renamed or rewritten) path out of a fixer.
type Result struct {
	Request *Request
	Path    string
}

// Fixer rewrites or renames a single file.
type Fixer interface {
	Name() string
	Description() string
	// CanRun reports environment capability, evaluated once at startup.
	CanRun() bool
	// CanRunFor reports whether this fixer would change the given file.
	CanRunFor(ctx context.Context, req *Request) bool
	Run(ctx context.Context, req *Request) (*Result, error)
}

// Chain applies fixers in order. Assembled once at startup; fixers whose
// CanRun fails are left out.
type Chain struct {
	fixers []Fixer
	logger *slog.Logger
}

// NewChain keeps the fixers whose CanRun holds, in order.
func NewChain(logger *slog.Logger, fixers ...Fixer) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger}
	for _, f := range fixers {
		if !f.CanRun() {
			logger.Warn("fixer unavailable", "fixer", f.Name())
			continue
		}
		c.fixers = append(c.fixers, f)
	}
	return c
}

// List returns the usable fixer names in chain order.
func (c *Chain) List() []string {
	names := make([]string, 0, len(c.fixers))
	for _, f := range c.fixers {
		names = append(names, f.Name())
	}
	return names
}

// Run pushes the file through every applicable fixer. The input must be
// an existing regular file; symlinks are resolved first. The original
// access/modification times are carried onto the final path when it
// differs from the input.
func (c *Chain) Run(ctx context.Context, req *Request) (*Result, error) {
	path, err := filepath.EvalSymlinks(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", req.Path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	times, err := fsutil.FileTimes(path)
	if err != nil {
		return nil, err
	}

	current := path
	for _, f := range c.fixers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := &Request{Path: current, Options: req.Options}
		if !f.CanRunFor(ctx, step) {
			continue
		}
		res, err := f.Run(ctx, step)
		if err != nil {
			c.logger.Warn("fixer failed, keeping previous path",
				"fixer", f.Name(), "file", filepath.Base(current), "error", err)
			continue
		}
		if res.Path != current {
			c.logger.Debug("fixer rewrote file", "fixer", f.Name(),
				"from", filepath.Base(current), "to", filepath.Base(res.Path))
		}
		current = res.Path
	}

	if current != path {
		if err := fsutil.ApplyTimes(current, times); err != nil {
			c.logger.Warn("failed to restore file times", "file", current, "error", err)
		}
	}
	return &Result{Request: req, Path: current}, nil
}
