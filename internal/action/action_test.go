package action

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/httpx"
)

type stubAction struct {
	name   string
	canRun bool
	ran    int
}

func (s *stubAction) Name() string        { return s.name }
func (s *stubAction) Description() string { return s.name }
func (s *stubAction) CanRun() bool        { return s.canRun }

func (s *stubAction) Run(ctx context.Context, req *Request) (*Result, error) {
	s.ran++
	return &Result{Request: req, Text: "done"}, nil
}

func TestRegistryFiltersAndDispatches(t *testing.T) {
	usable := &stubAction{name: "usable", canRun: true}
	gated := &stubAction{name: "gated", canRun: false}
	reg := NewRegistry(nil, usable, gated)

	assert.Equal(t, []string{"usable"}, reg.List())

	res, err := reg.Run(context.Background(), "usable", &Request{Path: "/tmp/x"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, 1, usable.ran)

	_, err = reg.Run(context.Background(), "gated", &Request{Path: "/tmp/x"})
	assert.Error(t, err)

	_, err = reg.Run(context.Background(), "no-such-action", &Request{Path: "/tmp/x"})
	assert.Error(t, err)
}

func TestOCRRequiresEndpoint(t *testing.T) {
	assert.False(t, NewOCR(nil, "").CanRun())
	assert.True(t, NewOCR(nil, "https://ocr.example").CanRun())
}

func TestOCRListEngines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/endpoints", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]string{"tesseract", "easyocr"})
	}))
	defer ts.Close()

	o := NewOCR(httpx.NewClient(nil), ts.URL)
	res, err := o.Run(context.Background(), &Request{
		Path:    "ignored",
		Options: map[string]any{"list-engines": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "tesseract\neasyocr", res.Text)
}

func TestOCRRecognizesImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ocr/tesseract", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		_, _ = w.Write([]byte(`{"data":[{"text":"first line"},{"text":"second line"}]}`))
	}))
	defer ts.Close()

	img := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(img, []byte("fakepng"), 0o644))

	o := NewOCR(httpx.NewClient(nil), ts.URL)
	res, err := o.Run(context.Background(), &Request{
		Path:    img,
		Options: map[string]any{"engine": "tesseract"},
	})
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", res.Text)
}

func TestOCRNeedsEngineOption(t *testing.T) {
	o := NewOCR(httpx.NewClient(nil), "https://ocr.example")
	_, err := o.Run(context.Background(), &Request{Path: "x", Options: nil})
	assert.Error(t, err)
}

func TestOptionHelpers(t *testing.T) {
	opts := map[string]any{"engine": "tesseract", "list-engines": true, "weird": 7}

	assert.Equal(t, "tesseract", optString(opts, "engine"))
	assert.Equal(t, "", optString(opts, "missing"))
	assert.Equal(t, "", optString(opts, "weird"))
	assert.True(t, optBool(opts, "list-engines"))
	assert.False(t, optBool(opts, "missing"))
	assert.False(t, optBool(nil, "anything"))
}
