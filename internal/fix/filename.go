package fix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/linkhoard/linkhoard/internal/errkind"
)

// Filename strips non-ASCII from a file's stem, renaming in place. Pure
// ASCII stems are left alone.
type Filename struct{}

func NewFilename() *Filename { return &Filename{} }

func (f *Filename) Name() string        { return "file-name" }
func (f *Filename) Description() string { return "strips non-ASCII characters from the name" }

func (f *Filename) CanRun() bool { return true }

func (f *Filename) CanRunFor(ctx context.Context, req *Request) bool {
	stem := stemOf(req.Path)
	return stem != asciiOnly(stem)
}

func (f *Filename) Run(ctx context.Context, req *Request) (*Result, error) {
	ext := filepath.Ext(req.Path)
	if ext == "" {
		return nil, errkind.Permanentf("%s has no extension", filepath.Base(req.Path))
	}
	stem := stemOf(req.Path)
	clean := asciiOnly(stem)
	if clean == stem {
		return &Result{Request: req, Path: req.Path}, nil
	}

	dest := filepath.Join(filepath.Dir(req.Path), clean+ext)
	if err := os.Rename(req.Path, dest); err != nil {
		return nil, fmt.Errorf("failed to rename to %s: %w", filepath.Base(dest), err)
	}
	return &Result{Request: req, Path: dest}, nil
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
