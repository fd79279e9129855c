package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/httpx"
)

func TestGenericDownloadWritesFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Disposition", `attachment; filename="sunset.jpeg"`)
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	defer ts.Close()

	g := NewGeneric(httpx.NewClient(nil), nil)
	dir := t.TempDir()
	res, err := g.Download(context.Background(), &Request{URL: ts.URL + "/photo", Dir: dir})
	require.NoError(t, err)

	base := filepath.Base(res.Path)
	assert.True(t, strings.HasSuffix(base, ".sunset.jpg"), "got %s", base)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "jpegbytes", string(data))
}

func TestGenericDownloadStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	g := NewGeneric(httpx.NewClient(nil), nil)
	_, err := g.Download(context.Background(), &Request{URL: ts.URL + "/gone", Dir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httpx.StatusCode(err))
}

func TestGenericCanDownload(t *testing.T) {
	g := NewGeneric(nil, nil)
	assert.True(t, g.CanDownload(&Request{URL: "https://m.example/a.mp4"}))
	assert.True(t, g.CanDownload(&Request{URL: "http://m.example/a.mp4"}))
	assert.False(t, g.CanDownload(&Request{URL: "ftp://m.example/a.mp4"}))
	assert.False(t, g.CanDownload(&Request{URL: "://bad"}))
}

func TestDeriveFilename(t *testing.T) {
	g := NewGeneric(nil, nil)
	tests := []struct {
		name        string
		url         string
		disposition string
		contentType string
		suffix      string
	}{
		{
			"disposition and content type",
			"https://m.example/x", `attachment; filename="clip.bin"`, "video/mp4",
			".clip.mp4",
		},
		{
			"url basename fallback",
			"https://m.example/path/holiday.jpg", "", "image/jpeg",
			".holiday.jpg",
		},
		{
			"extension from name when type unknown",
			"https://m.example/track.mp3", "", "",
			".track.mp3",
		},
		{
			"extended value preferred",
			"https://m.example/x", `attachment; filename="f.bin"; filename*=UTF-8''nice%20name.bin`, "video/mp4",
			".nice name.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.deriveFilename(tt.url, tt.disposition, tt.contentType)
			assert.True(t, strings.HasSuffix(got, tt.suffix), "got %q want suffix %q", got, tt.suffix)
			// The time id prefix makes the name unique.
			assert.Greater(t, strings.IndexByte(got, '.'), 0)
		})
	}
}

func TestDeriveFilenameBareURL(t *testing.T) {
	g := NewGeneric(nil, nil)
	got := g.deriveFilename("https://m.example/", "", "")
	// Nothing to derive from: just the id.
	assert.NotContains(t, got, ".")
	assert.NotEmpty(t, got)
}
