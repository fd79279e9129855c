package download

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected [][2]string
	}{
		{"single pair", "session=abc123", [][2]string{{"session", "abc123"}}},
		{
			"multiple pairs keep order",
			"a=1; b=2; c=3",
			[][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}},
		},
		{
			"whitespace and empties tolerated",
			"  k = v ;; lone ; x=y",
			[][2]string{{"k", "v"}, {"x", "y"}},
		},
		{"empty header", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cookies.txt")
			require.NoError(t, writeNetscapeCookies(path, "media.example", tt.header))

			pairs, err := readNetscapeCookies(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pairs)
		})
	}
}

func TestWriteNetscapeCookiesFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, writeNetscapeCookies(path, "media.example", "tt_chain_token=xyz"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, netscapeHeader+"\n")
	assert.Contains(t, content, "media.example\tFALSE\t/\tTRUE\t")
	assert.Contains(t, content, "\ttt_chain_token\txyz\n")
}

func TestReadNetscapeCookiesRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("too\tfew\tfields\n"), 0o600))

	_, err := readNetscapeCookies(path)
	assert.Error(t, err)
}
