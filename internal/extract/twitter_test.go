package extract

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwitterCanHandle(t *testing.T) {
	tw := NewTwitter(nil, "https://shot.example")
	ctx := context.Background()

	assert.True(t, tw.CanHandle(ctx, NewRequest("https://twitter.com/user/status/123")))
	assert.True(t, tw.CanHandle(ctx, NewRequest("https://x.com/user/status/123")))
	assert.True(t, tw.CanHandle(ctx, NewRequest("https://mobile.twitter.com/user")))
	assert.False(t, tw.CanHandle(ctx, NewRequest("https://twitter.example.com/x")))
}

func TestTwitterNonStatusYieldsScreenshotOnly(t *testing.T) {
	tw := NewTwitter(nil, "https://shot.example/")

	src := "https://twitter.com/i/broadcasts/1abc"
	info, err := tw.Extract(context.Background(), NewRequest(src))
	require.NoError(t, err)
	require.Len(t, info.URLs, 1)

	u := info.URLs[0]
	assert.Equal(t, "https://shot.example/"+url.QueryEscape(src), u.URL)
	assert.Equal(t, DownloaderGeneric, u.Downloader)
	assert.Equal(t, true, u.Meta["screenshot"])
	assert.NotNil(t, u.Options[OptionTimeout])
}

func TestTwitterStatusRegex(t *testing.T) {
	tests := []struct {
		name string
		url  string
		id   string
	}{
		{"twitter status", "https://twitter.com/someone/status/1234567890", "1234567890"},
		{"x status", "https://x.com/someone/status/42", "42"},
		{"status with query", "https://x.com/a/status/99?s=20", "99"},
		{"profile is not a status", "https://twitter.com/someone", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := twitterStatusRe.FindStringSubmatch(tt.url)
			if tt.id == "" {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.id, m[1])
		})
	}
}

func TestBestVariantPicksHighestBitrate(t *testing.T) {
	variants := []twitterVariant{
		{Bitrate: 0, ContentType: "application/x-mpegURL", URL: "https://v.example/pl.m3u8"},
		{Bitrate: 832000, ContentType: "video/mp4", URL: "https://v.example/mid.mp4"},
		{Bitrate: 2176000, ContentType: "video/mp4", URL: "https://v.example/high.mp4"},
		{Bitrate: 256000, ContentType: "video/mp4", URL: "https://v.example/low.mp4"},
	}
	assert.Equal(t, "https://v.example/high.mp4", bestVariant(variants))
	assert.Equal(t, "", bestVariant(nil))
}

func TestTumblrDelegatesToScreenshot(t *testing.T) {
	tw := NewTwitter(nil, "https://shot.example")
	tb := NewTumblr(tw)
	ctx := context.Background()

	assert.True(t, tb.CanHandle(ctx, NewRequest("https://someone.tumblr.com/post/1")))
	assert.False(t, tb.CanHandle(ctx, NewRequest("https://example.com/post/1")))

	info, err := tb.Extract(ctx, NewRequest("https://someone.tumblr.com/post/1"))
	require.NoError(t, err)
	require.Len(t, info.URLs, 1)
	assert.True(t, strings.HasPrefix(info.URLs[0].URL, "https://shot.example/"))
}
