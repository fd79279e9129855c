package extract

import (
	"context"
	"strings"
)

var musicHosts = []string{"spotify", "qobuz", "tidal", "apple", "deezer"}

// Music routes streaming-service links to the music downloader, which
// knows how to turn them into files.
type Music struct{}

func NewMusic() *Music { return &Music{} }

func (m *Music) Name() string        { return "music" }
func (m *Music) Description() string { return "spotify, qobuz, tidal, apple music and deezer links" }

func (m *Music) CanHandle(ctx context.Context, req *Request) bool {
	host := hostOf(req.URL)
	for _, h := range musicHosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}

func (m *Music) Extract(ctx context.Context, req *Request) (*Info, error) {
	return &Info{
		Request: req,
		URLs:    []URL{{URL: req.URL, Downloader: DownloaderMusic}},
	}, nil
}
