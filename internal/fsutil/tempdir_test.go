package fsutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeRemovedOnClose(t *testing.T) {
	s, err := NewScope(t.TempDir(), "scratch-*")
	require.NoError(t, err)
	require.DirExists(t, s.Dir())

	require.NoError(t, os.WriteFile(s.Path("frame.jpg"), []byte("x"), 0o644))
	require.NoError(t, s.Close())
	assert.NoDirExists(t, s.Dir())
}

func TestScopeKeepSurvivesClose(t *testing.T) {
	s, err := NewScope(t.TempDir(), "scratch-*")
	require.NoError(t, err)

	s.Keep()
	require.NoError(t, s.Close())
	assert.DirExists(t, s.Dir())
}

func TestTempFile(t *testing.T) {
	f, scope, err := TempFile(t.TempDir(), "cookies-*.txt")
	require.NoError(t, err)
	defer func() { _ = scope.Close() }()

	_, err = f.WriteString("data")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.FileExists(t, f.Name())
}
