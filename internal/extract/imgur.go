package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/httpx"
)

const imgurDataPrefix = "window.postDataJSON="

// Imgur resolves imgur.com posts and albums to their direct media URLs.
// Direct i.imgur.com links pass through unchanged.
type Imgur struct {
	client *httpx.Client
}

func NewImgur(client *httpx.Client) *Imgur {
	return &Imgur{client: client}
}

func (i *Imgur) Name() string        { return "imgur" }
func (i *Imgur) Description() string { return "imgur.com posts and direct media" }

func (i *Imgur) CanHandle(ctx context.Context, req *Request) bool {
	host := hostOf(req.URL)
	return host == "imgur.com" || host == "www.imgur.com" || host == "i.imgur.com"
}

func (i *Imgur) Extract(ctx context.Context, req *Request) (*Info, error) {
	if hostOf(req.URL) == "i.imgur.com" {
		return &Info{Request: req, URLs: []URL{{URL: req.URL}}}, nil
	}

	resp, err := i.client.Do(ctx, httpx.Request{Method: req.Method, URL: req.URL, Headers: req.Headers})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch imgur post: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, errkind.Permanent(fmt.Errorf("failed to parse imgur HTML: %w", err))
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.HasPrefix(text, imgurDataPrefix) {
			raw = strings.TrimSuffix(strings.TrimPrefix(text, imgurDataPrefix), ";")
			return false
		}
		return true
	})
	if raw == "" {
		return nil, errkind.Permanentf("no post data script in imgur page %s", req.URL)
	}

	post, err := parseImgurPostData(raw)
	if err != nil {
		return nil, errkind.Permanent(fmt.Errorf("failed to parse imgur post data: %w", err))
	}
	urls := make([]URL, 0, len(post.Media))
	for _, m := range post.Media {
		if m.URL != "" {
			urls = append(urls, URL{URL: m.URL})
		}
	}
	return &Info{Request: req, URLs: urls}, nil
}

type imgurPostData struct {
	Media []struct {
		URL string `json:"url"`
	} `json:"media"`
}

// parseImgurPostData decodes the double-encoded post blob. Imgur
// occasionally emits invalid \' escapes inside the outer JSON string, so
// the unescaped variant is tried first and the verbatim one as fallback.
func parseImgurPostData(raw string) (*imgurPostData, error) {
	post, err := decodeImgurBlob(strings.ReplaceAll(raw, `\'`, `'`))
	if err != nil {
		post, err = decodeImgurBlob(raw)
	}
	return post, err
}

func decodeImgurBlob(raw string) (*imgurPostData, error) {
	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err != nil {
		return nil, err
	}
	var post imgurPostData
	if err := json.Unmarshal([]byte(inner), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
