package download

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/fsutil"
	"github.com/linkhoard/linkhoard/internal/httpx"
)

// Music tries a list of third-party download services in order; the
// first one that supports the URL's store runs.
type Music struct {
	providers []musicProvider
	logger    *slog.Logger
}

func NewMusic(client *httpx.Client, generic *Generic, logger *slog.Logger) *Music {
	if logger == nil {
		logger = slog.Default()
	}
	return &Music{
		providers: []musicProvider{
			&spotifydown{client: client, generic: generic},
			&yams{client: client, generic: generic, logger: logger},
		},
		logger: logger,
	}
}

func (m *Music) Name() string        { return NameMusic }
func (m *Music) Description() string { return "music store links via download services" }

func (m *Music) CanRun() bool { return true }

func (m *Music) CanDownload(req *Request) bool {
	for _, p := range m.providers {
		if p.supports(req.URL) {
			return true
		}
	}
	return false
}

func (m *Music) Download(ctx context.Context, req *Request) (*Result, error) {
	for _, p := range m.providers {
		if !p.supports(req.URL) {
			continue
		}
		m.logger.Debug("music provider selected", "provider", p.name(), "url", req.URL)
		path, err := p.fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", p.name(), err)
		}
		return &Result{Request: req, Path: path}, nil
	}
	return nil, errkind.ErrNotApplicable
}

type musicProvider interface {
	name() string
	supports(url string) bool
	fetch(ctx context.Context, req *Request) (string, error)
}

// spotifydown resolves spotify track links through api.spotifydown.com.
type spotifydown struct {
	client  *httpx.Client
	generic *Generic
}

var spotifyTrackRe = regexp.MustCompile(`/track/([A-Za-z0-9]+)`)

func (s *spotifydown) name() string { return "spotifydown" }

func (s *spotifydown) supports(rawURL string) bool {
	host := hostOf(rawURL)
	return (host == "spotify.com" || strings.HasSuffix(host, ".spotify.com")) &&
		spotifyTrackRe.MatchString(rawURL)
}

func (s *spotifydown) fetch(ctx context.Context, req *Request) (string, error) {
	m := spotifyTrackRe.FindStringSubmatch(req.URL)
	if m == nil {
		return "", errkind.Permanentf("no track id in %s", req.URL)
	}

	// The response is a union: link on success, message on refusal.
	var body struct {
		Link    string `json:"link"`
		Message string `json:"message"`
	}
	err := s.client.DoJSON(ctx, httpx.Request{
		URL: "https://api.spotifydown.com/download/" + m[1],
		Headers: map[string]string{
			"Origin":  "https://spotifydown.com",
			"Referer": "https://spotifydown.com/",
		},
	}, &body)
	if err != nil {
		return "", err
	}
	if body.Link == "" {
		return "", errkind.Permanentf("spotifydown refused: %s", body.Message)
	}

	res, err := s.generic.Download(ctx, &Request{URL: body.Link, Dir: req.Dir})
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// yams submits the link to yams.tf and polls until the service has
// transcoded and packed the result.
type yams struct {
	client  *httpx.Client
	generic *Generic
	logger  *slog.Logger
}

const (
	yamsAPI          = "https://yams.tf/api"
	yamsPollAttempts = 300
	yamsPollInterval = time.Second
)

// yamsQualities maps each supported store to the quality string the
// service expects for it.
var yamsQualities = map[string]string{
	"spotify": "flac",
	"qobuz":   "27",
	"tidal":   "27",
	"apple":   "alac",
	"deezer":  "9",
}

func (y *yams) name() string { return "yams" }

func (y *yams) storeFor(rawURL string) string {
	host := hostOf(rawURL)
	for store := range yamsQualities {
		if strings.Contains(host, store) {
			return store
		}
	}
	return ""
}

func (y *yams) supports(rawURL string) bool {
	return y.storeFor(rawURL) != ""
}

func (y *yams) fetch(ctx context.Context, req *Request) (string, error) {
	store := y.storeFor(req.URL)

	var submitted struct {
		ID int64 `json:"id"`
	}
	err := y.client.DoJSON(ctx, httpx.Request{
		Method: http.MethodPost,
		URL:    yamsAPI,
		Body: map[string]string{
			"url":     req.URL,
			"quality": yamsQualities[store],
			"host":    "filehaus",
		},
	}, &submitted)
	if err != nil {
		return "", err
	}

	archiveURL, err := y.poll(ctx, submitted.ID)
	if err != nil {
		return "", err
	}

	scratch, err := fsutil.NewScope("", "yams-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = scratch.Close() }()

	res, err := y.generic.Download(ctx, &Request{URL: archiveURL, Dir: scratch.Dir()})
	if err != nil {
		return "", err
	}
	return extractFirstZipEntry(res.Path, req.Dir)
}

func (y *yams) poll(ctx context.Context, id int64) (string, error) {
	for attempt := 0; attempt < yamsPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(yamsPollInterval):
		}

		var status struct {
			URL   string `json:"url"`
			Error string `json:"error"`
		}
		err := y.client.DoJSON(ctx, httpx.Request{
			URL:   yamsAPI,
			Query: map[string]string{"id": fmt.Sprintf("%d", id)},
		}, &status)
		if err != nil {
			return "", err
		}
		if status.Error != "" {
			return "", errkind.Permanentf("yams reported: %s", status.Error)
		}
		if status.URL != "" {
			return status.URL, nil
		}
	}
	return "", errkind.Transientf("yams job %d not ready after %d polls", id, yamsPollAttempts)
}

// extractFirstZipEntry unpacks the first non-dotfile from the archive
// into dir and returns its path.
func extractFirstZipEntry(archivePath, dir string) (string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		base := filepath.Base(f.Name)
		if f.FileInfo().IsDir() || strings.HasPrefix(base, ".") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read archive entry: %w", err)
		}
		dest := filepath.Join(dir, base)
		out, err := os.Create(dest)
		if err != nil {
			_ = rc.Close()
			return "", fmt.Errorf("failed to create %s: %w", dest, err)
		}
		_, err = io.Copy(out, rc)
		_ = rc.Close()
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(dest)
			return "", fmt.Errorf("failed to extract %s: %w", base, err)
		}
		return dest, nil
	}
	return "", errkind.Permanentf("archive %s has no usable entries", filepath.Base(archivePath))
}
