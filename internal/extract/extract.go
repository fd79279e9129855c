// Package extract turns one user-supplied URL into the concrete media
// URLs behind it. Extractors are tried in registration order; the first
// one that recognizes the request owns it.
package extract

import (
	"context"
	"net/http"
)

// Downloader ids an extractor may hint at. They match the names the
// download registry registers under.
const (
	DownloaderGeneric = "generic"
	DownloaderYTDLP   = "yt-dlp"
	DownloaderMusic   = "music"
)

// Request is the immutable input to an extraction.
type Request struct {
	URL     string
	Method  string // defaults to GET
	Headers map[string]string
}

// NewRequest builds a GET request for url.
func NewRequest(url string) *Request {
	return &Request{URL: url, Method: http.MethodGet}
}

// URL is one media URL discovered by an extractor, together with the
// headers the download needs and optional routing hints. Equality is
// URL-only.
type URL struct {
	URL        string
	Headers    map[string]string
	Downloader string         // preferred downloader, empty for registry order
	Options    map[string]any // downloader options
	Meta       map[string]any
}

// Info is the result of a successful extraction. URL order is
// significant: extractors append fallback artifacts (screenshots) last.
type Info struct {
	Request *Request
	URLs    []URL
	Meta    map[string]any
}

// Dedup drops repeated URLs keeping the first occurrence, in order.
func Dedup(urls []URL) []URL {
	seen := make(map[string]struct{}, len(urls))
	out := make([]URL, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u.URL]; ok {
			continue
		}
		seen[u.URL] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Extractor is one site-specific URL resolver.
type Extractor interface {
	Name() string
	Description() string
	// CanHandle decides applicability. It may perform a lightweight
	// network probe (the ActivityPub extractor fetches nodeinfo).
	CanHandle(ctx context.Context, req *Request) bool
	Extract(ctx context.Context, req *Request) (*Info, error)
}
