package extract

import (
	"context"
	"fmt"
	"regexp"

	"github.com/linkhoard/linkhoard/internal/httpx"
)

var blueskyPostRe = regexp.MustCompile(`bsky\.app/profile/([^/]+)/post/([^/?#]+)`)

const blueskyThreadURL = "https://public.api.bsky.app/xrpc/app.bsky.feed.getPostThread"

// BlueSky resolves bsky.app posts through the public AT-Proto API.
// Images download directly; videos come as HLS playlists and go through
// yt-dlp. A screenshot is appended as fallback.
type BlueSky struct {
	client  *httpx.Client
	twitter *Twitter
}

func NewBlueSky(client *httpx.Client, twitter *Twitter) *BlueSky {
	return &BlueSky{client: client, twitter: twitter}
}

func (b *BlueSky) Name() string        { return "bluesky" }
func (b *BlueSky) Description() string { return "bsky.app posts" }

func (b *BlueSky) CanHandle(ctx context.Context, req *Request) bool {
	return blueskyPostRe.MatchString(req.URL)
}

func (b *BlueSky) Extract(ctx context.Context, req *Request) (*Info, error) {
	m := blueskyPostRe.FindStringSubmatch(req.URL)
	actor, rkey := m[1], m[2]

	var payload struct {
		Thread struct {
			Post struct {
				Embed *blueskyEmbed `json:"embed"`
			} `json:"post"`
		} `json:"thread"`
	}
	err := b.client.DoJSON(ctx, httpx.Request{
		URL: blueskyThreadURL,
		Query: map[string]string{
			"uri": fmt.Sprintf("at://%s/app.bsky.feed.post/%s", actor, rkey),
		},
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("bluesky thread lookup failed: %w", err)
	}

	urls := collectBlueskyEmbed(payload.Thread.Post.Embed, nil)
	urls = append(urls, b.twitter.screenshotURL(req.URL))
	return &Info{Request: req, URLs: urls}, nil
}

// blueskyEmbed covers the nested embed union returned by getPostThread:
// image views, video views and record-with-media views that wrap another
// embed.
type blueskyEmbed struct {
	Type   string `json:"$type"`
	Images []struct {
		Fullsize string `json:"fullsize"`
	} `json:"images"`
	Playlist string        `json:"playlist"`
	Media    *blueskyEmbed `json:"media"`
}

func collectBlueskyEmbed(e *blueskyEmbed, acc []URL) []URL {
	if e == nil {
		return acc
	}
	for _, img := range e.Images {
		if img.Fullsize != "" {
			acc = append(acc, URL{URL: img.Fullsize, Downloader: DownloaderGeneric})
		}
	}
	if e.Playlist != "" {
		acc = append(acc, URL{URL: e.Playlist, Downloader: DownloaderYTDLP})
	}
	return collectBlueskyEmbed(e.Media, acc)
}
