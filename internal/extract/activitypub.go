package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/httpx"
)

// DefaultDelegationHops bounds how many federation redirects the
// ActivityPub extractor follows before giving up.
const DefaultDelegationHops = 10

// ActivityPub resolves statuses on Mastodon and Misskey/Sharkey servers.
// The server software is discovered through nodeinfo; posts that turn out
// to live on another instance (federated copies) are followed up to a
// bounded number of hops.
type ActivityPub struct {
	client  *httpx.Client
	twitter *Twitter
	maxHops int

	mu       sync.Mutex
	software map[string]string // host -> nodeinfo software name
}

func NewActivityPub(client *httpx.Client, twitter *Twitter, maxHops int) *ActivityPub {
	if maxHops <= 0 {
		maxHops = DefaultDelegationHops
	}
	return &ActivityPub{
		client:   client,
		twitter:  twitter,
		maxHops:  maxHops,
		software: make(map[string]string),
	}
}

func (a *ActivityPub) Name() string        { return "activitypub" }
func (a *ActivityPub) Description() string { return "mastodon and misskey/sharkey statuses" }

func (a *ActivityPub) CanHandle(ctx context.Context, req *Request) bool {
	host := hostOf(req.URL)
	if host == "" {
		return false
	}
	software, err := a.discoverSoftware(ctx, host)
	if err != nil {
		return false
	}
	return a.handlerFor(software) != nil
}

func (a *ActivityPub) Extract(ctx context.Context, req *Request) (*Info, error) {
	return followDelegations(req, a.maxHops, func(current string) ([]URL, string, string, error) {
		host := hostOf(current)
		software, err := a.discoverSoftware(ctx, host)
		if err != nil {
			return nil, "", "", fmt.Errorf("nodeinfo discovery failed for %s: %w", host, err)
		}
		handler := a.handlerFor(software)
		if handler == nil {
			return nil, "", "", errkind.Permanentf("unsupported fediverse software %q on %s", software, host)
		}
		urls, delegate, err := handler(ctx, current)
		return urls, delegate, software, err
	})
}

// followDelegations drives the resolution loop: step resolves one URL
// and either returns the final media URLs or names the instance the post
// actually lives on. Cycles and runaway chains terminate the loop.
func followDelegations(req *Request, maxHops int, step func(current string) (urls []URL, delegate, software string, err error)) (*Info, error) {
	current := req.URL
	visited := map[string]struct{}{current: {}}

	for hop := 0; hop < maxHops; hop++ {
		urls, delegate, software, err := step(current)
		if err != nil {
			return nil, err
		}
		if delegate == "" {
			return &Info{Request: req, URLs: urls, Meta: map[string]any{"software": software}}, nil
		}
		if _, seen := visited[delegate]; seen {
			return nil, errkind.Permanentf("delegation cycle detected at %s", delegate)
		}
		visited[delegate] = struct{}{}
		current = delegate
	}
	return nil, errkind.Permanentf("gave up after %d delegation hops from %s", maxHops, req.URL)
}

// apHandler resolves one status URL. A non-empty delegate means the post
// actually lives at that URL and the caller should retry there.
type apHandler func(ctx context.Context, postURL string) (urls []URL, delegate string, err error)

func (a *ActivityPub) handlerFor(software string) apHandler {
	switch strings.ToLower(software) {
	case "mastodon", "hometown", "pleroma", "akkoma":
		return a.resolveMastodon
	case "misskey", "sharkey", "firefish", "iceshrimp":
		return a.resolveMisskey
	default:
		return nil
	}
}

// discoverSoftware fetches /.well-known/nodeinfo and the schema document
// it points at, caching the software name per host.
func (a *ActivityPub) discoverSoftware(ctx context.Context, host string) (string, error) {
	a.mu.Lock()
	if s, ok := a.software[host]; ok {
		a.mu.Unlock()
		return s, nil
	}
	a.mu.Unlock()

	var wellKnown struct {
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	err := a.client.DoJSON(ctx, httpx.Request{
		URL: fmt.Sprintf("https://%s/.well-known/nodeinfo", host),
	}, &wellKnown)
	if err != nil {
		return "", err
	}
	var schemaURL string
	for _, l := range wellKnown.Links {
		if strings.Contains(l.Rel, "nodeinfo.diaspora.software/ns/schema") {
			schemaURL = l.Href
		}
	}
	if schemaURL == "" {
		return "", errkind.Permanentf("no nodeinfo schema link on %s", host)
	}

	var nodeinfo struct {
		Software struct {
			Name string `json:"name"`
		} `json:"software"`
	}
	if err := a.client.DoJSON(ctx, httpx.Request{URL: schemaURL}, &nodeinfo); err != nil {
		return "", err
	}

	a.mu.Lock()
	a.software[host] = nodeinfo.Software.Name
	a.mu.Unlock()
	return nodeinfo.Software.Name, nil
}

// resolveMastodon reads the status through the REST API. When the
// canonical URL lives on another host the status is a federated copy and
// resolution is delegated there.
func (a *ActivityPub) resolveMastodon(ctx context.Context, postURL string) ([]URL, string, error) {
	host := hostOf(postURL)
	statusID := lastPathSegment(postURL)
	if statusID == "" {
		return nil, "", errkind.Permanentf("no status id in %s", postURL)
	}

	var status struct {
		URL              string `json:"url"`
		MediaAttachments []struct {
			URL string `json:"url"`
		} `json:"media_attachments"`
	}
	err := a.client.DoJSON(ctx, httpx.Request{
		URL: fmt.Sprintf("https://%s/api/v1/statuses/%s", host, statusID),
	}, &status)
	if err != nil {
		return nil, "", fmt.Errorf("mastodon status lookup failed: %w", err)
	}

	if status.URL != "" && hostOf(status.URL) != host {
		return nil, status.URL, nil
	}
	var urls []URL
	for _, m := range status.MediaAttachments {
		if m.URL != "" {
			urls = append(urls, URL{URL: m.URL})
		}
	}
	return urls, "", nil
}

// resolveMisskey reads the note through the JSON API and appends a
// screenshot since misskey posts are mostly text.
func (a *ActivityPub) resolveMisskey(ctx context.Context, postURL string) ([]URL, string, error) {
	host := hostOf(postURL)
	noteID := lastPathSegment(postURL)
	if noteID == "" {
		return nil, "", errkind.Permanentf("no note id in %s", postURL)
	}

	var note struct {
		Files []struct {
			URL string `json:"url"`
		} `json:"files"`
	}
	err := a.client.DoJSON(ctx, httpx.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("https://%s/api/notes/show", host),
		Body:   map[string]string{"noteId": noteID},
	}, &note)
	if err != nil {
		return nil, "", fmt.Errorf("misskey note lookup failed: %w", err)
	}

	var urls []URL
	for _, f := range note.Files {
		if f.URL != "" {
			urls = append(urls, URL{URL: f.URL})
		}
	}
	urls = append(urls, a.twitter.screenshotURL(postURL))
	return urls, "", nil
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
