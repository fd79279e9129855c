package action

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/download"
	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/execx"
	"github.com/linkhoard/linkhoard/internal/fix"
	"github.com/linkhoard/linkhoard/internal/fsutil"
	"github.com/linkhoard/linkhoard/internal/httpx"
)

const (
	uploadHost       = "https://0x0.st"
	removeBgAPI      = "https://birefnet.top/api/generate"
	removeBgAttempts = 5
	removeBgBackoff  = time.Second
)

// RemoveBackground cuts the subject out of an image. The service only
// accepts URLs, so the image takes a round trip through a public paste
// host: upload, generate, download, then a best-effort delete of the
// upload. The result is trimmed by the image crop fixer before it is
// returned.
type RemoveBackground struct {
	client *httpx.Client
	crop   *fix.CropImage
	logger *slog.Logger
}

func NewRemoveBackground(client *httpx.Client, resolver *execx.Resolver, logger *slog.Logger) *RemoveBackground {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoveBackground{
		client: client,
		crop:   fix.NewCropImage(resolver),
		logger: logger,
	}
}

func (r *RemoveBackground) Name() string        { return "remove-background" }
func (r *RemoveBackground) Description() string { return "removes the background from an image" }

func (r *RemoveBackground) CanRun() bool { return true }

func (r *RemoveBackground) Run(ctx context.Context, req *Request) (*Result, error) {
	if !fsutil.IsImage(req.Path) {
		return nil, errkind.Permanentf("%s is not an image", filepath.Base(req.Path))
	}

	publicURL, token, err := r.upload(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	defer r.deleteUpload(publicURL, token)

	resultURL, err := r.generate(ctx, publicURL)
	if err != nil {
		return nil, err
	}

	dl := download.NewGeneric(r.client, r.logger)
	res, err := dl.Download(ctx, &download.Request{
		URL: resultURL,
		Dir: filepath.Dir(req.Path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result: %w", err)
	}

	out := res.Path
	if r.crop.CanRun() {
		cropped, err := r.crop.Run(ctx, &fix.Request{Path: out})
		if err != nil {
			r.logger.Warn("crop after background removal failed", "error", err)
		} else {
			out = cropped.Path
		}
	}
	return &Result{Request: req, Files: []string{out}}, nil
}

// upload pushes the image to the paste host and returns its public URL
// plus the management token from the X-Token header.
func (r *RemoveBackground) upload(ctx context.Context, path string) (string, string, error) {
	resp, err := r.client.PostMultipartFile(ctx, uploadHost, "file", path, nil)
	if err != nil {
		return "", "", fmt.Errorf("upload failed: %w", err)
	}
	publicURL := strings.TrimSpace(string(resp.Body()))
	if !strings.HasPrefix(publicURL, "http") {
		return "", "", errkind.Permanentf("unexpected upload response %q", publicURL)
	}
	return publicURL, resp.Header().Get("X-Token"), nil
}

// generate polls the removal service, which intermittently 500s while
// the model warms up.
func (r *RemoveBackground) generate(ctx context.Context, imageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < removeBgAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(removeBgBackoff):
			}
		}
		var body struct {
			URL   string `json:"url"`
			Error string `json:"error"`
		}
		err := r.client.DoJSON(ctx, httpx.Request{
			Method: http.MethodPost,
			URL:    removeBgAPI,
			Body:   map[string]string{"imageUrl": imageURL},
		}, &body)
		if err != nil {
			if errkind.IsCancelled(err) {
				return "", err
			}
			lastErr = err
			continue
		}
		if body.Error != "" {
			lastErr = errkind.Permanentf("removal service: %s", body.Error)
			continue
		}
		if body.URL != "" {
			return body.URL, nil
		}
		lastErr = errkind.Permanentf("removal service returned no url")
	}
	return "", fmt.Errorf("background removal failed after %d attempts: %w", removeBgAttempts, lastErr)
}

// deleteUpload asks the paste host to forget the file. Best effort; the
// host expires pastes on its own anyway.
func (r *RemoveBackground) deleteUpload(url, token string) {
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := r.client.Do(ctx, httpx.Request{
		Method:   http.MethodPost,
		URL:      url,
		FormData: map[string]string{"token": token, "delete": ""},
	})
	if err != nil {
		r.logger.Debug("failed to delete temporary upload", "url", url, "error", err)
	}
}
