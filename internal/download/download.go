// Package download turns one concrete media URL into one file on disk.
// Downloaders are tried in registration order unless the extractor asked
// for a specific one.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Names the downloaders register under. Extractor hints use the same
// strings.
const (
	NameGeneric = "generic"
	NameYTDLP   = "yt-dlp"
	NameMusic   = "music"
)

// Request describes one fetch. Dir must exist and be writable; the
// downloader owns the choice of filename within it.
type Request struct {
	URL       string
	Method    string
	Headers   map[string]string
	Dir       string
	Preferred string         // preferred downloader name, empty for registry order
	Options   map[string]any // downloader options from the extractor
}

// Result points at the freshly written file inside Request.Dir.
type Result struct {
	Request *Request
	Path    string
}

// Downloader is one fetch strategy.
type Downloader interface {
	Name() string
	Description() string
	// CanRun reports environment capability (binary present, endpoint
	// configured). Evaluated once at startup.
	CanRun() bool
	// CanDownload reports per-request applicability.
	CanDownload(req *Request) bool
	Download(ctx context.Context, req *Request) (*Result, error)
}

// Registry is the ordered downloader list, filtered at construction to
// the downloaders that can run in this environment.
type Registry struct {
	downloaders []Downloader
	byName      map[string]Downloader
	logger      *slog.Logger
}

// NewRegistry keeps the downloaders whose CanRun holds, in order.
func NewRegistry(logger *slog.Logger, downloaders ...Downloader) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{byName: make(map[string]Downloader), logger: logger}
	for _, d := range downloaders {
		if !d.CanRun() {
			logger.Warn("downloader unavailable", "downloader", d.Name())
			continue
		}
		r.downloaders = append(r.downloaders, d)
		r.byName[d.Name()] = d
	}
	return r
}

// List returns the usable downloader names in dispatch order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.downloaders))
	for _, d := range r.downloaders {
		names = append(names, d.Name())
	}
	return names
}

// Download picks a downloader for req and runs it. The preferred
// downloader wins when it is capable; otherwise the first capable one in
// registry order is used.
func (r *Registry) Download(ctx context.Context, req *Request) (*Result, error) {
	if req.Preferred != "" {
		if d, ok := r.byName[req.Preferred]; ok && d.CanDownload(req) {
			r.logger.Debug("using preferred downloader", "downloader", d.Name(), "url", req.URL)
			return d.Download(ctx, req)
		}
	}
	for _, d := range r.downloaders {
		if d.CanDownload(req) {
			r.logger.Debug("downloader selected", "downloader", d.Name(), "url", req.URL)
			return d.Download(ctx, req)
		}
	}
	return nil, fmt.Errorf("no downloader can handle %s", req.URL)
}

// optTimeout reads the per-download timeout option, accepting either a
// duration (set in process) or a number of seconds (decoded from JSON).
func optTimeout(opts map[string]any) time.Duration {
	v, ok := opts["timeout"]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case time.Duration:
		return t
	case int:
		return time.Duration(t) * time.Second
	case float64:
		return time.Duration(t * float64(time.Second))
	}
	return 0
}
