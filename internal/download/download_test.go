package download

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDownloader struct {
	name    string
	canRun  bool
	accepts bool
	calls   int
}

func (s *stubDownloader) Name() string        { return s.name }
func (s *stubDownloader) Description() string { return s.name }
func (s *stubDownloader) CanRun() bool        { return s.canRun }

func (s *stubDownloader) CanDownload(req *Request) bool { return s.accepts }

func (s *stubDownloader) Download(ctx context.Context, req *Request) (*Result, error) {
	s.calls++
	return &Result{Request: req, Path: filepath.Join(req.Dir, s.name)}, nil
}

func TestRegistryFiltersUnrunnable(t *testing.T) {
	usable := &stubDownloader{name: "usable", canRun: true, accepts: true}
	broken := &stubDownloader{name: "broken", canRun: false, accepts: true}
	reg := NewRegistry(nil, broken, usable)

	assert.Equal(t, []string{"usable"}, reg.List())
}

func TestRegistryOrderAndPreference(t *testing.T) {
	first := &stubDownloader{name: "first", canRun: true, accepts: true}
	second := &stubDownloader{name: "second", canRun: true, accepts: true}
	reg := NewRegistry(nil, first, second)

	req := &Request{URL: "https://m.example/a", Dir: t.TempDir()}
	res, err := reg.Download(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
	assert.Contains(t, res.Path, "first")

	req.Preferred = "second"
	_, err = reg.Download(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, second.calls)
}

func TestRegistryPreferenceFallsBackWhenIncapable(t *testing.T) {
	capable := &stubDownloader{name: "capable", canRun: true, accepts: true}
	picky := &stubDownloader{name: "picky", canRun: true, accepts: false}
	reg := NewRegistry(nil, capable, picky)

	req := &Request{URL: "https://m.example/a", Dir: t.TempDir(), Preferred: "picky"}
	_, err := reg.Download(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, picky.calls)
	assert.Equal(t, 1, capable.calls)
}

func TestRegistryNoCapableDownloader(t *testing.T) {
	reg := NewRegistry(nil, &stubDownloader{name: "picky", canRun: true, accepts: false})
	_, err := reg.Download(context.Background(), &Request{URL: "ftp://nope"})
	assert.Error(t, err)
}

func TestOptTimeout(t *testing.T) {
	tests := []struct {
		name     string
		opts     map[string]any
		expected time.Duration
	}{
		{"absent", nil, 0},
		{"duration", map[string]any{"timeout": 45 * time.Second}, 45 * time.Second},
		{"int seconds", map[string]any{"timeout": 30}, 30 * time.Second},
		{"json float seconds", map[string]any{"timeout": 1.5}, 1500 * time.Millisecond},
		{"mistyped", map[string]any{"timeout": "soon"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, optTimeout(tt.opts))
		})
	}
}

func TestExtractFirstZipEntry(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "album.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, entry := range []struct{ name, body string }{
		{".hidden", "nope"},
		{"cover/", ""},
		{"cover/track01.flac", "FLACDATA"},
		{"cover/track02.flac", "MORE"},
	} {
		if entry.body == "" && entry.name[len(entry.name)-1] == '/' {
			_, err = zw.Create(entry.name)
			require.NoError(t, err)
			continue
		}
		w, err := zw.Create(entry.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(entry.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dir := t.TempDir()
	path, err := extractFirstZipEntry(archive, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "track01.flac"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FLACDATA", string(data))
}

func TestExtractFirstZipEntryEmptyArchive(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = extractFirstZipEntry(archive, t.TempDir())
	assert.Error(t, err)
}
