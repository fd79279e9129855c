package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/httpx"
)

var tiktokVideoRe = regexp.MustCompile(`tiktok\.com/@[^/]+/video/\d+`)

// TikTok resolves video pages via the rehydration JSON embedded in the
// HTML. The play URL only works with the chain-token cookie issued on the
// page fetch, so the cookie and a Referer travel with the extracted URL.
type TikTok struct {
	client *httpx.Client
}

func NewTikTok(client *httpx.Client) *TikTok {
	return &TikTok{client: client}
}

func (t *TikTok) Name() string        { return "tiktok" }
func (t *TikTok) Description() string { return "tiktok.com video pages" }

func (t *TikTok) CanHandle(ctx context.Context, req *Request) bool {
	host := hostOf(req.URL)
	return (host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com")) &&
		tiktokVideoRe.MatchString(req.URL)
}

func (t *TikTok) Extract(ctx context.Context, req *Request) (*Info, error) {
	resp, err := t.client.Do(ctx, httpx.Request{URL: req.URL, Headers: req.Headers})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tiktok page: %w", err)
	}

	var chainToken string
	for _, c := range resp.Cookies() {
		if c.Name == "tt_chain_token" {
			chainToken = c.Value
			break
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, errkind.Permanent(fmt.Errorf("failed to parse tiktok HTML: %w", err))
	}
	blob := doc.Find("#__UNIVERSAL_DATA_FOR_REHYDRATION__").Text()
	if blob == "" {
		return nil, errkind.Permanentf("no rehydration data in tiktok page %s", req.URL)
	}

	var data struct {
		DefaultScope struct {
			VideoDetail struct {
				ItemInfo struct {
					ItemStruct struct {
						Video struct {
							PlayAddr string `json:"playAddr"`
						} `json:"video"`
					} `json:"itemStruct"`
				} `json:"itemInfo"`
			} `json:"webapp.video-detail"`
		} `json:"__DEFAULT_SCOPE__"`
	}
	if err := json.Unmarshal([]byte(blob), &data); err != nil {
		return nil, errkind.Permanent(fmt.Errorf("failed to decode tiktok rehydration data: %w", err))
	}
	playAddr := data.DefaultScope.VideoDetail.ItemInfo.ItemStruct.Video.PlayAddr
	if playAddr == "" {
		return nil, errkind.Permanentf("no play address in tiktok page %s", req.URL)
	}

	headers := map[string]string{
		"Referer":    req.URL,
		"User-Agent": httpx.UserAgent,
	}
	if chainToken != "" {
		headers["Cookie"] = "tt_chain_token=" + chainToken
	}
	return &Info{Request: req, URLs: []URL{{URL: playAddr, Headers: headers}}}, nil
}
