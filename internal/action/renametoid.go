package action

import (
	"context"

	"github.com/linkhoard/linkhoard/internal/fix"
)

// RenameToID exposes the fixer of the same name as an explicitly
// invokable action.
type RenameToID struct {
	fixer *fix.RenameToID
}

func NewRenameToID() *RenameToID {
	return &RenameToID{fixer: fix.NewRenameToID()}
}

func (r *RenameToID) Name() string        { return r.fixer.Name() }
func (r *RenameToID) Description() string { return r.fixer.Description() }
func (r *RenameToID) CanRun() bool        { return r.fixer.CanRun() }

func (r *RenameToID) Run(ctx context.Context, req *Request) (*Result, error) {
	res, err := r.fixer.Run(ctx, &fix.Request{Path: req.Path, Options: req.Options})
	if err != nil {
		return nil, err
	}
	return &Result{Request: req, Files: []string{res.Path}}, nil
}
