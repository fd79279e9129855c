package extract

import (
	"context"
	"strings"
)

// Tumblr posts render fine through the same screenshot service the
// twitter extractor uses, so it simply delegates.
type Tumblr struct {
	twitter *Twitter
}

func NewTumblr(twitter *Twitter) *Tumblr {
	return &Tumblr{twitter: twitter}
}

func (t *Tumblr) Name() string        { return "tumblr" }
func (t *Tumblr) Description() string { return "tumblr.com posts via screenshot" }

func (t *Tumblr) CanHandle(ctx context.Context, req *Request) bool {
	host := hostOf(req.URL)
	return host == "tumblr.com" || strings.HasSuffix(host, ".tumblr.com")
}

func (t *Tumblr) Extract(ctx context.Context, req *Request) (*Info, error) {
	return &Info{Request: req, URLs: []URL{t.twitter.screenshotURL(req.URL)}}, nil
}
