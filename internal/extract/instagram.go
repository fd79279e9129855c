package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/httpx"
)

var instagramPostRe = regexp.MustCompile(`instagram\.com/(?:p|reel)/([A-Za-z0-9_-]+)`)

const (
	instagramGraphqlURL = "https://www.instagram.com/graphql/query"
	// doc_id of the public PolarisPostActionLoadPostQueryQuery document.
	instagramDocID = "8845758582119845"
)

// Instagram resolves post and reel URLs through the anonymous GraphQL
// endpoint.
type Instagram struct {
	client *httpx.Client
}

func NewInstagram(client *httpx.Client) *Instagram {
	return &Instagram{client: client}
}

func (i *Instagram) Name() string        { return "instagram" }
func (i *Instagram) Description() string { return "instagram.com posts and reels" }

func (i *Instagram) CanHandle(ctx context.Context, req *Request) bool {
	host := hostOf(req.URL)
	return (host == "instagram.com" || strings.HasSuffix(host, ".instagram.com")) &&
		instagramPostRe.MatchString(req.URL)
}

func (i *Instagram) Extract(ctx context.Context, req *Request) (*Info, error) {
	m := instagramPostRe.FindStringSubmatch(req.URL)
	if m == nil {
		return nil, errkind.ErrNotApplicable
	}
	shortcode := m[1]

	variables, err := json.Marshal(map[string]any{"shortcode": shortcode})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Data struct {
			Media *instagramMedia `json:"xdt_shortcode_media"`
		} `json:"data"`
	}
	err = i.client.DoJSON(ctx, httpx.Request{
		Method: http.MethodPost,
		URL:    instagramGraphqlURL,
		Headers: map[string]string{
			"X-IG-App-ID": "936619743392459",
		},
		FormData: map[string]string{
			"variables":         string(variables),
			"server_timestamps": "true",
			"doc_id":            instagramDocID,
		},
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("instagram graphql query failed: %w", err)
	}
	if payload.Data.Media == nil {
		return nil, errkind.Permanentf("instagram post %s not found or not public", shortcode)
	}

	urls := flattenInstagramMedia(payload.Data.Media, nil)
	return &Info{Request: req, URLs: urls, Meta: map[string]any{"shortcode": shortcode}}, nil
}

// instagramMedia is a member of the XDTGraphVideo | XDTGraphImage |
// XDTGraphSidecar union. Sidecar children are members of the same union.
type instagramMedia struct {
	Typename   string `json:"__typename"`
	VideoURL   string `json:"video_url"`
	DisplayURL string `json:"display_url"`
	Sidecar    struct {
		Edges []struct {
			Node instagramMedia `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}

func flattenInstagramMedia(m *instagramMedia, acc []URL) []URL {
	switch m.Typename {
	case "XDTGraphVideo":
		if m.VideoURL != "" {
			acc = append(acc, URL{URL: m.VideoURL})
		}
	case "XDTGraphImage":
		if m.DisplayURL != "" {
			acc = append(acc, URL{URL: m.DisplayURL})
		}
	case "XDTGraphSidecar":
		for _, e := range m.Sidecar.Edges {
			node := e.Node
			acc = flattenInstagramMedia(&node, acc)
		}
	}
	return acc
}
