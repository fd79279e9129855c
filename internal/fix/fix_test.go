package fix

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFixer renames the file by appending its tag, or fails.
type stubFixer struct {
	tag        string
	canRun     bool
	applicable bool
	err        error
	ran        int
}

func (s *stubFixer) Name() string        { return s.tag }
func (s *stubFixer) Description() string { return s.tag }
func (s *stubFixer) CanRun() bool        { return s.canRun }

func (s *stubFixer) CanRunFor(ctx context.Context, req *Request) bool {
	return s.applicable
}

func (s *stubFixer) Run(ctx context.Context, req *Request) (*Result, error) {
	s.ran++
	if s.err != nil {
		return nil, s.err
	}
	dest := req.Path + "." + s.tag
	if err := os.Rename(req.Path, dest); err != nil {
		return nil, err
	}
	return &Result{Request: req, Path: dest}, nil
}

func tempMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func TestChainFiltersUnrunnableFixers(t *testing.T) {
	a := &stubFixer{tag: "a", canRun: true, applicable: true}
	b := &stubFixer{tag: "b", canRun: false, applicable: true}
	chain := NewChain(nil, a, b)

	assert.Equal(t, []string{"a"}, chain.List())
}

func TestChainAppliesFixersInOrder(t *testing.T) {
	a := &stubFixer{tag: "a", canRun: true, applicable: true}
	b := &stubFixer{tag: "b", canRun: true, applicable: true}
	chain := NewChain(nil, a, b)

	path := tempMedia(t)
	res, err := chain.Run(context.Background(), &Request{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path+".a.b", res.Path)
}

func TestChainSwallowsFixerFailure(t *testing.T) {
	// A failing fixer must not break the chain; the next fixer sees the
	// previous path.
	a := &stubFixer{tag: "a", canRun: true, applicable: true}
	broken := &stubFixer{tag: "broken", canRun: true, applicable: true, err: errors.New("codec exploded")}
	c := &stubFixer{tag: "c", canRun: true, applicable: true}
	chain := NewChain(nil, a, broken, c)

	path := tempMedia(t)
	res, err := chain.Run(context.Background(), &Request{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path+".a.c", res.Path)
	assert.Equal(t, 1, broken.ran)
}

func TestChainSkipsInapplicableFixers(t *testing.T) {
	skipped := &stubFixer{tag: "skipped", canRun: true, applicable: false}
	applied := &stubFixer{tag: "applied", canRun: true, applicable: true}
	chain := NewChain(nil, skipped, applied)

	path := tempMedia(t)
	res, err := chain.Run(context.Background(), &Request{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 0, skipped.ran)
	assert.Equal(t, path+".applied", res.Path)
}

func TestChainRequiresRegularFile(t *testing.T) {
	chain := NewChain(nil)

	_, err := chain.Run(context.Background(), &Request{Path: filepath.Join(t.TempDir(), "missing.mp4")})
	assert.Error(t, err)

	_, err = chain.Run(context.Background(), &Request{Path: t.TempDir()})
	assert.Error(t, err)
}

func TestChainStopsOnCancellation(t *testing.T) {
	a := &stubFixer{tag: "a", canRun: true, applicable: true}
	chain := NewChain(nil, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := chain.Run(ctx, &Request{Path: tempMedia(t)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenameToIDFixer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holiday.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	r := NewRenameToID()
	res, err := r.Run(context.Background(), &Request{Path: path})
	require.NoError(t, err)

	base := filepath.Base(res.Path)
	assert.NotEqual(t, "holiday.mp4", base)
	assert.Contains(t, base, ".holiday.mp4")
	_, err = os.Stat(res.Path)
	assert.NoError(t, err)
}

func TestRenameToIDRequiresStemAndExtension(t *testing.T) {
	dir := t.TempDir()
	r := NewRenameToID()

	noExt := filepath.Join(dir, "noext")
	require.NoError(t, os.WriteFile(noExt, []byte("x"), 0o644))
	_, err := r.Run(context.Background(), &Request{Path: noExt})
	assert.Error(t, err)

	noStem := filepath.Join(dir, ".mp4")
	require.NoError(t, os.WriteFile(noStem, []byte("x"), 0o644))
	_, err = r.Run(context.Background(), &Request{Path: noStem})
	assert.Error(t, err)
}
