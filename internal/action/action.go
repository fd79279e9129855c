// Package action holds the operations invoked explicitly by name on an
// already-downloaded file: re-encoding to a compact preset, scene
// splitting, OCR, background removal and renaming. Unlike fixers,
// actions take free-form options and may return text instead of files.
package action

import (
	"context"
	"fmt"
	"log/slog"
)

// Request is one file plus the options the caller passed along.
type Request struct {
	Path    string
	Options map[string]any
}

// Result is a tagged union: an action produces output files or a text
// payload, never both.
type Result struct {
	Request *Request
	Files   []string
	Text    string
}

// Action is one named operation.
type Action interface {
	Name() string
	Description() string
	// CanRun reports environment capability, evaluated once at startup.
	CanRun() bool
	Run(ctx context.Context, req *Request) (*Result, error)
}

// Registry maps names to usable actions. Read-only after New.
type Registry struct {
	actions map[string]Action
	order   []string
	logger  *slog.Logger
}

// NewRegistry keeps the actions whose CanRun holds.
func NewRegistry(logger *slog.Logger, actions ...Action) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{actions: make(map[string]Action), logger: logger}
	for _, a := range actions {
		if !a.CanRun() {
			logger.Warn("action unavailable", "action", a.Name())
			continue
		}
		r.actions[a.Name()] = a
		r.order = append(r.order, a.Name())
	}
	return r
}

// List returns the usable action names in registration order.
func (r *Registry) List() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Run invokes the named action.
func (r *Registry) Run(ctx context.Context, name string, req *Request) (*Result, error) {
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	r.logger.Debug("running action", "action", name, "file", req.Path)
	return a.Run(ctx, req)
}

// optString reads a string option, empty when absent or mistyped.
func optString(opts map[string]any, key string) string {
	if s, ok := opts[key].(string); ok {
		return s
	}
	return ""
}

// optBool reads a bool option, false when absent or mistyped.
func optBool(opts map[string]any, key string) bool {
	b, _ := opts[key].(bool)
	return b
}
