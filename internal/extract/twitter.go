package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/httpx"
)

// OptionTimeout is the downloader option carrying a per-download timeout.
// Screenshot services render on demand and need more than the default.
const OptionTimeout = "timeout"

var twitterStatusRe = regexp.MustCompile(`(?:twitter|x)\.com/[^/]+/status/(\d+)`)

const (
	twitterActivateURL = "https://api.twitter.com/1.1/guest/activate.json"
	twitterGraphqlURL  = "https://api.twitter.com/graphql/0hWvDhmW8YQ-S_ib3azIrw/TweetResultByRestId"
	// Public web-app bearer, shipped in twitter's own frontend bundle.
	twitterBearer = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

	twitterFeatures = `{"creator_subscriptions_tweet_preview_api_enabled":true,"communities_web_enable_tweet_community_results_fetch":true,"c9s_tweet_anatomy_moderator_badge_enabled":true,"articles_preview_enabled":true,"responsive_web_edit_tweet_api_enabled":true,"graphql_is_translatable_rweb_tweet_is_translatable_enabled":true,"view_counts_everywhere_api_enabled":true,"longform_notetweets_consumption_enabled":true,"responsive_web_twitter_article_tweet_consumption_enabled":true,"tweet_awards_web_tipping_enabled":false,"creator_subscriptions_quote_tweet_preview_enabled":false,"freedom_of_speech_not_reach_fetch_enabled":true,"standardized_nudges_misinfo":true,"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled":true,"rweb_video_timestamps_enabled":true,"longform_notetweets_rich_text_read_enabled":true,"longform_notetweets_inline_media_enabled":true,"rweb_tipjar_consumption_enabled":true,"responsive_web_graphql_exclude_directive_enabled":true,"verified_phone_label_enabled":false,"responsive_web_graphql_skip_user_profile_image_extensions_enabled":false,"responsive_web_graphql_timeline_navigation_enabled":true,"responsive_web_enhance_cards_enabled":false}`
	twitterToggles  = `{"withArticleRichContentState":true,"withArticlePlainText":false,"withGrokAnalyze":false,"withDisallowedReplyControls":false}`
)

// Twitter resolves tweet media through the anonymous guest-token GraphQL
// API and always appends a rendered screenshot of the tweet as a fallback
// artifact. URLs that are not a tweet yield only the screenshot.
type Twitter struct {
	client         *httpx.Client
	screenshotBase string
}

func NewTwitter(client *httpx.Client, screenshotBase string) *Twitter {
	return &Twitter{client: client, screenshotBase: strings.TrimRight(screenshotBase, "/")}
}

func (t *Twitter) Name() string        { return "twitter" }
func (t *Twitter) Description() string { return "twitter.com / x.com statuses" }

func (t *Twitter) CanHandle(ctx context.Context, req *Request) bool {
	host := hostOf(req.URL)
	switch host {
	case "twitter.com", "www.twitter.com", "x.com", "www.x.com", "mobile.twitter.com":
		return true
	}
	return false
}

func (t *Twitter) Extract(ctx context.Context, req *Request) (*Info, error) {
	m := twitterStatusRe.FindStringSubmatch(req.URL)
	if m == nil {
		// Not a status URL (broadcast, profile, ...): the rendered
		// screenshot is the only artifact we can produce.
		return &Info{Request: req, URLs: []URL{t.screenshotURL(req.URL)}}, nil
	}
	tweetID := m[1]

	token, cookies, err := t.activateGuest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain guest token: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + twitterBearer,
		"X-Guest-Token": token,
	}
	if cookies != "" {
		headers["Cookie"] = cookies
	}
	variables, err := json.Marshal(map[string]any{
		"tweetId":                tweetID,
		"withCommunity":          false,
		"includePromotedContent": false,
		"withVoice":              false,
	})
	if err != nil {
		return nil, err
	}

	var payload twitterTweetResult
	err = t.client.DoJSON(ctx, httpx.Request{
		URL:     twitterGraphqlURL,
		Headers: headers,
		Query: map[string]string{
			"variables":    string(variables),
			"features":     twitterFeatures,
			"fieldToggles": twitterToggles,
		},
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("tweet lookup failed: %w", err)
	}

	urls := make([]URL, 0, 4)
	for _, media := range payload.Data.TweetResult.Result.Legacy.ExtendedEntities.Media {
		switch media.Type {
		case "photo":
			if media.MediaURLHTTPS != "" {
				urls = append(urls, URL{URL: media.MediaURLHTTPS})
			}
		case "video", "animated_gif":
			if best := bestVariant(media.VideoInfo.Variants); best != "" {
				urls = append(urls, URL{URL: best})
			}
		}
	}
	urls = append(urls, t.screenshotURL(req.URL))
	return &Info{Request: req, URLs: urls, Meta: map[string]any{"tweet_id": tweetID}}, nil
}

// activateGuest fetches an anonymous guest token, passing along whatever
// cookies the activation endpoint sets.
func (t *Twitter) activateGuest(ctx context.Context) (token, cookies string, err error) {
	resp, err := t.client.Do(ctx, httpx.Request{
		Method:  http.MethodPost,
		URL:     twitterActivateURL,
		Headers: map[string]string{"Authorization": "Bearer " + twitterBearer},
	})
	if err != nil {
		return "", "", err
	}
	var body struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", "", errkind.Permanent(fmt.Errorf("failed to decode guest token: %w", err))
	}
	if body.GuestToken == "" {
		return "", "", errkind.Permanentf("guest activation returned no token")
	}
	var pairs []string
	for _, c := range resp.Cookies() {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return body.GuestToken, strings.Join(pairs, "; "), nil
}

// screenshotURL synthesizes the rendered-tweet fallback artifact.
func (t *Twitter) screenshotURL(tweetURL string) URL {
	return URL{
		URL:        t.screenshotBase + "/" + url.QueryEscape(tweetURL),
		Downloader: DownloaderGeneric,
		Options:    map[string]any{OptionTimeout: 60 * time.Second},
		Meta:       map[string]any{"screenshot": true},
	}
}

type twitterTweetResult struct {
	Data struct {
		TweetResult struct {
			Result struct {
				Legacy struct {
					ExtendedEntities struct {
						Media []struct {
							Type          string `json:"type"`
							MediaURLHTTPS string `json:"media_url_https"`
							VideoInfo     struct {
								Variants []twitterVariant `json:"variants"`
							} `json:"video_info"`
						} `json:"media"`
					} `json:"extended_entities"`
				} `json:"legacy"`
			} `json:"result"`
		} `json:"tweetResult"`
	} `json:"data"`
}

type twitterVariant struct {
	Bitrate     int    `json:"bitrate"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

func bestVariant(variants []twitterVariant) string {
	best := ""
	bestRate := -1
	for _, v := range variants {
		if v.URL == "" {
			continue
		}
		if v.Bitrate > bestRate {
			bestRate = v.Bitrate
			best = v.URL
		}
	}
	return best
}
