package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linkhoard/linkhoard/internal/errkind"
)

// Registry is the ordered extractor list. It is assembled once at startup
// and read-only afterwards.
type Registry struct {
	extractors []Extractor
	logger     *slog.Logger
}

// NewRegistry builds a registry over the given extractors, in order. The
// fallthrough extractor is appended automatically so every request is
// handled by someone.
func NewRegistry(logger *slog.Logger, extractors ...Extractor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		extractors: append(extractors, &Fallthrough{}),
		logger:     logger,
	}
}

// List returns the registered extractor names in dispatch order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.extractors))
	for _, e := range r.extractors {
		names = append(names, e.Name())
	}
	return names
}

// ExtractInfo dispatches req to the first extractor that can handle it
// and stamps the winner's name into the result meta.
func (r *Registry) ExtractInfo(ctx context.Context, req *Request) (*Info, error) {
	for _, e := range r.extractors {
		if !e.CanHandle(ctx, req) {
			continue
		}
		r.logger.Debug("extractor selected", "extractor", e.Name(), "url", req.URL)
		info, err := e.Extract(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s extraction failed: %w", e.Name(), err)
		}
		if len(info.URLs) == 0 {
			return nil, errkind.Permanentf("%s extracted no URLs from %s", e.Name(), req.URL)
		}
		if info.Meta == nil {
			info.Meta = make(map[string]any)
		}
		info.Meta["extractor"] = e.Name()
		return info, nil
	}
	// Unreachable: the fallthrough extractor handles everything.
	return nil, errkind.Permanentf("no extractor for %s", req.URL)
}

// Fallthrough answers every request with the input URL itself so that
// plain media links still flow through the downloader registry.
type Fallthrough struct{}

func (f *Fallthrough) Name() string        { return "fallthrough" }
func (f *Fallthrough) Description() string { return "passes the URL through unchanged" }

func (f *Fallthrough) CanHandle(ctx context.Context, req *Request) bool { return true }

func (f *Fallthrough) Extract(ctx context.Context, req *Request) (*Info, error) {
	return &Info{
		Request: req,
		URLs:    []URL{{URL: req.URL, Headers: req.Headers}},
	}, nil
}
