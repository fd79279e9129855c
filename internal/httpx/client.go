// Package httpx wraps resty into the single shared HTTP client the
// extractors, downloaders and actions use. It pins a desktop browser
// User-Agent, applies a default timeout, merges per-request headers over
// the defaults and classifies failures for retry decisions.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/linkhoard/linkhoard/internal/errkind"
)

// UserAgent is the desktop Chrome identity sent by default. Several sites
// (TikTok in particular) refuse or degrade responses for non-browser
// agents.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultTimeout bounds a request unless the caller overrides it.
const DefaultTimeout = 30 * time.Second

// Client is the process-wide HTTP client. Read-only after New.
type Client struct {
	resty  *resty.Client
	logger *slog.Logger
}

// NewClient builds the shared client.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rc := resty.New().
		SetTimeout(DefaultTimeout).
		SetHeader("User-Agent", UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return &Client{resty: rc, logger: logger}
}

// Request describes one HTTP exchange. Headers override the client
// defaults key by key; a zero Timeout uses the default.
type Request struct {
	Method   string
	URL      string
	Headers  map[string]string
	Query    map[string]string
	Timeout  time.Duration
	Body     any               // JSON-encoded unless FormData is set
	FormData map[string]string // URL-encoded form body
}

// Do performs the exchange and returns the full response. Errors are
// classified (see errors.go) and additionally wrapped for the retry
// engine: timeouts, transport failures and 5xx are transient, 4xx are
// permanent.
func (c *Client) Do(ctx context.Context, req Request) (*resty.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := c.resty.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	for k, v := range req.Query {
		r.SetQueryParam(k, v)
	}
	if req.FormData != nil {
		r.SetFormData(req.FormData)
	} else if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(method, req.URL)
	if err != nil {
		return nil, c.classify(ctx, req.URL, err)
	}
	if resp.StatusCode() >= 400 {
		herr := &Error{Kind: KindStatus, Status: resp.StatusCode(), URL: req.URL}
		if resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests {
			return resp, errkind.Transient(herr)
		}
		return resp, errkind.Permanent(herr)
	}
	return resp, nil
}

// DoJSON performs the exchange and decodes the body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errkind.Permanent(&Error{Kind: KindDecode, URL: req.URL, Err: err})
	}
	return nil
}

// Stream performs the exchange without buffering the body. The caller
// must close the returned reader. Response headers are available on the
// returned response.
func (c *Client) Stream(ctx context.Context, req Request) (*resty.Response, io.ReadCloser, error) {
	cancel := context.CancelFunc(func() {})
	if req.Timeout > 0 {
		// The body outlives this call; the cancel travels with the
		// returned reader.
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := c.resty.R().SetContext(ctx).SetDoNotParseResponse(true)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	resp, err := r.Execute(method, req.URL)
	if err != nil {
		cancel()
		return nil, nil, c.classify(ctx, req.URL, err)
	}
	if resp.StatusCode() >= 400 {
		_ = resp.RawBody().Close()
		cancel()
		herr := &Error{Kind: KindStatus, Status: resp.StatusCode(), URL: req.URL}
		if resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests {
			return nil, nil, errkind.Transient(herr)
		}
		return nil, nil, errkind.Permanent(herr)
	}
	return resp, &cancelReadCloser{ReadCloser: resp.RawBody(), cancel: cancel}, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// PostMultipartFile uploads path as a multipart form field, streaming the
// file rather than buffering it.
func (c *Client) PostMultipartFile(ctx context.Context, url, field, path string, headers map[string]string) (*resty.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errkind.Permanent(fmt.Errorf("failed to open upload file: %w", err))
	}
	defer func() { _ = f.Close() }()

	r := c.resty.R().
		SetContext(ctx).
		SetFileReader(field, filepath.Base(path), f)
	for k, v := range headers {
		r.SetHeader(k, v)
	}
	resp, err := r.Post(url)
	if err != nil {
		return nil, c.classify(ctx, url, err)
	}
	if resp.StatusCode() >= 400 {
		herr := &Error{Kind: KindStatus, Status: resp.StatusCode(), URL: url}
		if resp.StatusCode() >= 500 {
			return resp, errkind.Transient(herr)
		}
		return resp, errkind.Permanent(herr)
	}
	return resp, nil
}

func (c *Client) classify(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errkind.Transient(&Error{Kind: KindTimeout, URL: url, Err: err})
	}
	return errkind.Transient(&Error{Kind: KindTransport, URL: url, Err: err})
}
