package extract

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstagramCanHandle(t *testing.T) {
	ig := NewInstagram(nil)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.instagram.com/p/DAbCdEf/", true},
		{"https://instagram.com/reel/DAbCdEf/", true},
		{"https://evilinstagram.com/p/DAbCdEf/", false},
		{"https://instagram.com.evil.example/p/DAbCdEf/", false},
		{"https://www.instagram.com/someuser/", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ig.CanHandle(context.Background(), NewRequest(tt.url)))
		})
	}
}

func TestFlattenInstagramMedia(t *testing.T) {
	blob := `{
		"__typename": "XDTGraphSidecar",
		"edge_sidecar_to_children": {"edges": [
			{"node": {"__typename": "XDTGraphImage", "display_url": "https://cdn.example/1.jpg"}},
			{"node": {"__typename": "XDTGraphVideo", "video_url": "https://cdn.example/2.mp4"}},
			{"node": {"__typename": "XDTGraphSidecar", "edge_sidecar_to_children": {"edges": [
				{"node": {"__typename": "XDTGraphImage", "display_url": "https://cdn.example/3.jpg"}}
			]}}}
		]}
	}`
	var m instagramMedia
	require.NoError(t, json.Unmarshal([]byte(blob), &m))

	urls := flattenInstagramMedia(&m, nil)
	require.Len(t, urls, 3)
	assert.Equal(t, "https://cdn.example/1.jpg", urls[0].URL)
	assert.Equal(t, "https://cdn.example/2.mp4", urls[1].URL)
	assert.Equal(t, "https://cdn.example/3.jpg", urls[2].URL)
}
