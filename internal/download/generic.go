package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/linkhoard/linkhoard/internal/fsutil"
	"github.com/linkhoard/linkhoard/internal/httpx"
	"github.com/linkhoard/linkhoard/internal/timeid"
)

// Generic streams any http(s) URL to disk. The filename is derived from
// Content-Disposition when the server sends one, else from the URL, and
// the extension from the response Content-Type.
type Generic struct {
	client *httpx.Client
	logger *slog.Logger
}

func NewGeneric(client *httpx.Client, logger *slog.Logger) *Generic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generic{client: client, logger: logger}
}

func (g *Generic) Name() string        { return NameGeneric }
func (g *Generic) Description() string { return "plain HTTP download" }

func (g *Generic) CanRun() bool { return true }

func (g *Generic) CanDownload(req *Request) bool {
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (g *Generic) Download(ctx context.Context, req *Request) (*Result, error) {
	resp, body, err := g.client.Stream(ctx, httpx.Request{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
		Timeout: optTimeout(req.Options),
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	name := g.deriveFilename(req.URL, resp.Header().Get("Content-Disposition"), resp.Header().Get("Content-Type"))
	dest := filepath.Join(req.Dir, name)

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	written, err := io.Copy(out, body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	g.logger.Info("downloaded", "url", req.URL, "file", name, "size", humanize.Bytes(uint64(written)))
	return &Result{Request: req, Path: dest}, nil
}

// deriveFilename produces <time-id>.<name>.<ext>, where name comes from
// Content-Disposition (extended value preferred when decodable), falling
// back to the URL's last path segment, and ext from the Content-Type.
func (g *Generic) deriveFilename(rawURL, disposition, contentType string) string {
	var name string
	if disposition != "" {
		if d, err := ParseContentDisposition(disposition); err == nil {
			name = d.BestFilename()
		}
	}
	if name == "" {
		if u, err := url.Parse(rawURL); err == nil {
			name = path.Base(u.Path)
			if name == "/" || name == "." {
				name = ""
			}
		}
	}

	ext := fsutil.ExtByMime(contentType)
	if ext == "" {
		ext = strings.TrimPrefix(filepath.Ext(name), ".")
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = fsutil.SafeFilename(name)

	id := timeid.New()
	switch {
	case name == "" && ext == "":
		return id
	case ext == "":
		return id + "." + name
	case name == "":
		return id + "." + ext
	default:
		return id + "." + name + "." + ext
	}
}
