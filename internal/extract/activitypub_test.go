package extract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerForSoftware(t *testing.T) {
	a := NewActivityPub(nil, nil, 0)

	for _, software := range []string{"mastodon", "Mastodon", "hometown", "pleroma", "akkoma"} {
		assert.NotNil(t, a.handlerFor(software), software)
	}
	for _, software := range []string{"misskey", "sharkey", "firefish", "iceshrimp"} {
		assert.NotNil(t, a.handlerFor(software), software)
	}
	assert.Nil(t, a.handlerFor("wordpress"))
	assert.Nil(t, a.handlerFor(""))
}

func TestFollowDelegationsResolvesChain(t *testing.T) {
	req := NewRequest("https://a.example/@u/1")
	chain := map[string]string{
		"https://a.example/@u/1": "https://b.example/@u/2",
		"https://b.example/@u/2": "https://c.example/@u/3",
	}

	info, err := followDelegations(req, DefaultDelegationHops, func(current string) ([]URL, string, string, error) {
		if next, ok := chain[current]; ok {
			return nil, next, "mastodon", nil
		}
		return []URL{{URL: current + "/media.mp4"}}, "", "mastodon", nil
	})
	require.NoError(t, err)
	require.Len(t, info.URLs, 1)
	assert.Equal(t, "https://c.example/@u/3/media.mp4", info.URLs[0].URL)
	assert.Equal(t, "mastodon", info.Meta["software"])
}

func TestFollowDelegationsHopLimit(t *testing.T) {
	req := NewRequest("https://h0.example/p/0")

	hops := 0
	_, err := followDelegations(req, 10, func(current string) ([]URL, string, string, error) {
		hops++
		return nil, fmt.Sprintf("https://h%d.example/p/%d", hops, hops), "mastodon", nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10 delegation hops")
	// The resolver must stop after exactly maxHops resolutions.
	assert.Equal(t, 10, hops)
}

func TestFollowDelegationsDetectsCycle(t *testing.T) {
	req := NewRequest("https://a.example/p/1")

	_, err := followDelegations(req, 10, func(current string) ([]URL, string, string, error) {
		if current == "https://a.example/p/1" {
			return nil, "https://b.example/p/2", "mastodon", nil
		}
		return nil, "https://a.example/p/1", "mastodon", nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestLastPathSegment(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"mastodon status", "https://mastodon.social/@user/111222333", "111222333"},
		{"misskey note", "https://misskey.io/notes/9abcdef", "9abcdef"},
		{"trailing slash", "https://a.example/p/42/", "42"},
		{"bare host", "https://a.example", ""},
		{"unparseable", "://nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, lastPathSegment(tt.url))
		})
	}
}
