package fix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/timeid"
)

// RenameToID prefixes the filename with a fresh time id, giving files
// from different sources a uniform, sortable naming scheme.
type RenameToID struct{}

func NewRenameToID() *RenameToID { return &RenameToID{} }

func (r *RenameToID) Name() string        { return "rename-to-id" }
func (r *RenameToID) Description() string { return "renames to <time-id>.<name>.<ext>" }

func (r *RenameToID) CanRun() bool { return true }

func (r *RenameToID) CanRunFor(ctx context.Context, req *Request) bool { return true }

func (r *RenameToID) Run(ctx context.Context, req *Request) (*Result, error) {
	ext := filepath.Ext(req.Path)
	if ext == "" {
		return nil, errkind.Permanentf("%s has no extension", filepath.Base(req.Path))
	}
	stem := stemOf(req.Path)
	if stem == "" {
		return nil, errkind.Permanentf("%s has no name stem", filepath.Base(req.Path))
	}

	dest := filepath.Join(filepath.Dir(req.Path), timeid.NewThreaded()+"."+stem+ext)
	if err := os.Rename(req.Path, dest); err != nil {
		return nil, fmt.Errorf("failed to rename to %s: %w", filepath.Base(dest), err)
	}
	return &Result{Request: req, Path: dest}, nil
}
