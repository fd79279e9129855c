// Package pipeline drives a URL through the full ingest flow: extract
// the media URLs, download them with bounded fan-out, and push every
// produced file through the fixer chain. Per-URL failures are isolated
// so one broken link does not sink the rest of an extraction.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/linkhoard/linkhoard/internal/download"
	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/extract"
	"github.com/linkhoard/linkhoard/internal/fix"
	"github.com/linkhoard/linkhoard/internal/fsutil"
)

// DefaultFanout bounds concurrent downloads per extraction.
const DefaultFanout = 4

// Pipeline wires the three registries together. Read-only after New.
type Pipeline struct {
	extractors  *extract.Registry
	downloaders *download.Registry
	fixers      *fix.Chain
	fanout      int
	logger      *slog.Logger
}

func New(extractors *extract.Registry, downloaders *download.Registry, fixers *fix.Chain, fanout int, logger *slog.Logger) *Pipeline {
	if fanout <= 0 {
		fanout = DefaultFanout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractors:  extractors,
		downloaders: downloaders,
		fixers:      fixers,
		fanout:      fanout,
		logger:      logger,
	}
}

// FileResult is the outcome for one extracted URL.
type FileResult struct {
	URL  string
	Path string // final path after fixing, empty on failure
	Err  error
}

// Result is the outcome of one Ingest call.
type Result struct {
	Info  *extract.Info
	Files []FileResult
}

// Failed reports whether every extracted URL failed.
func (r *Result) Failed() bool {
	for _, f := range r.Files {
		if f.Err == nil {
			return false
		}
	}
	return len(r.Files) > 0
}

// Ingest runs the full flow for one request into dir. An extraction
// error fails the call; download and fix errors are recorded per file.
// The error is transient when every file failed transiently, so the
// retry engine can run the whole ingest again.
func (p *Pipeline) Ingest(ctx context.Context, req *extract.Request, dir string) (*Result, error) {
	info, err := p.extractors.ExtractInfo(ctx, req)
	if err != nil {
		return nil, err
	}
	urls := extract.Dedup(info.URLs)

	results := make([]FileResult, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fanout)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			path, err := p.fetchOne(gctx, u, dir)
			mu.Lock()
			results[i] = FileResult{URL: u.URL, Path: path, Err: err}
			mu.Unlock()
			if errkind.IsCancelled(err) {
				// Only cancellation aborts the sibling downloads.
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Info: info, Files: results}
	if res.Failed() {
		return res, p.overallError(results)
	}
	return res, nil
}

// fetchOne downloads a single URL and fixes the produced file. A fixer
// chain failure is not fatal; the downloaded file is still a result.
func (p *Pipeline) fetchOne(ctx context.Context, u extract.URL, dir string) (string, error) {
	dres, err := p.downloaders.Download(ctx, &download.Request{
		URL:       u.URL,
		Headers:   u.Headers,
		Dir:       dir,
		Preferred: u.Downloader,
		Options:   u.Options,
	})
	if err != nil {
		p.logger.Warn("download failed", "url", u.URL, "error", err)
		return "", err
	}

	fres, err := p.fixers.Run(ctx, &fix.Request{Path: dres.Path})
	if err != nil {
		p.logger.Warn("fixer chain failed, keeping raw download", "file", dres.Path, "error", err)
		return dres.Path, nil
	}
	if p.logger.Enabled(ctx, slog.LevelDebug) {
		if sum, err := fsutil.HashFile(fres.Path); err == nil {
			p.logger.Debug("file ready", "file", fres.Path, "sha256", sum)
		}
	}
	return fres.Path, nil
}

// overallError picks the error to surface when nothing succeeded: the
// first transient one when present so the caller retries, else the
// first error.
func (p *Pipeline) overallError(results []FileResult) error {
	var first error
	for _, f := range results {
		if f.Err == nil {
			continue
		}
		if first == nil {
			first = f.Err
		}
		if errkind.IsTransient(f.Err) {
			return f.Err
		}
	}
	return first
}
