package fix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/linkhoard/linkhoard/internal/fsutil"
)

// ErrUnableToGetExtension means the file's magic bytes matched nothing we
// know.
var ErrUnableToGetExtension = errors.New("unable to infer extension from content")

// extAliases folds extension spellings that mean the same container.
var extAliases = map[string]string{
	"jpeg": "jpg",
	"mpg":  "mpeg",
	"tif":  "tiff",
}

// Extension renames a file whose extension disagrees with its content.
// Contents are never rewritten.
type Extension struct{}

func NewExtension() *Extension { return &Extension{} }

func (e *Extension) Name() string        { return "file-extension" }
func (e *Extension) Description() string { return "renames to match the sniffed content type" }

func (e *Extension) CanRun() bool { return true }

func (e *Extension) CanRunFor(ctx context.Context, req *Request) bool {
	inferred, err := fsutil.ExtForPath(req.Path)
	if err != nil {
		return false
	}
	if inferred == "" {
		// Run will surface ErrUnableToGetExtension.
		return true
	}
	return normalizeExt(inferred) != normalizeExt(strings.TrimPrefix(filepath.Ext(req.Path), "."))
}

func (e *Extension) Run(ctx context.Context, req *Request) (*Result, error) {
	inferred, err := fsutil.ExtForPath(req.Path)
	if err != nil {
		return nil, err
	}
	if inferred == "" {
		return nil, ErrUnableToGetExtension
	}
	current := strings.TrimPrefix(filepath.Ext(req.Path), ".")
	if normalizeExt(inferred) == normalizeExt(current) {
		return &Result{Request: req, Path: req.Path}, nil
	}

	stem := strings.TrimSuffix(req.Path, filepath.Ext(req.Path))
	dest := stem + "." + inferred
	if err := os.Rename(req.Path, dest); err != nil {
		return nil, fmt.Errorf("failed to rename to %s: %w", filepath.Base(dest), err)
	}
	return &Result{Request: req, Path: dest}, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if alias, ok := extAliases[ext]; ok {
		return alias
	}
	return ext
}
