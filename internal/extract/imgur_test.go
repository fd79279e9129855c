package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/httpx"
)

func TestImgurCanHandle(t *testing.T) {
	i := NewImgur(nil)
	ctx := context.Background()

	assert.True(t, i.CanHandle(ctx, NewRequest("https://imgur.com/a/abc123")))
	assert.True(t, i.CanHandle(ctx, NewRequest("https://www.imgur.com/gallery/xyz")))
	assert.True(t, i.CanHandle(ctx, NewRequest("https://i.imgur.com/direct.mp4")))
	assert.False(t, i.CanHandle(ctx, NewRequest("https://example.com/imgur.com")))
}

func TestImgurDirectLinkPassesThrough(t *testing.T) {
	i := NewImgur(nil)
	info, err := i.Extract(context.Background(), NewRequest("https://i.imgur.com/direct.mp4"))
	require.NoError(t, err)
	require.Len(t, info.URLs, 1)
	assert.Equal(t, "https://i.imgur.com/direct.mp4", info.URLs[0].URL)
}

func TestImgurExtractsEmbeddedPostData(t *testing.T) {
	page := `<!DOCTYPE html><html><head>
<script>window.someOtherThing=1;</script>
<script>
window.postDataJSON="{\"media\":[{\"url\":\"https://i.imgur.com/one.mp4\"},{\"url\":\"https://i.imgur.com/two.jpg\"}]}";
</script>
</head><body></body></html>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer ts.Close()

	i := NewImgur(httpx.NewClient(nil))
	info, err := i.Extract(context.Background(), NewRequest(ts.URL+"/a/abc123"))
	require.NoError(t, err)
	require.Len(t, info.URLs, 2)
	assert.Equal(t, "https://i.imgur.com/one.mp4", info.URLs[0].URL)
	assert.Equal(t, "https://i.imgur.com/two.jpg", info.URLs[1].URL)
}

func TestParseImgurPostDataRecoversInvalidQuoteEscape(t *testing.T) {
	// Imgur emits \' inside the outer JSON string for titles with
	// apostrophes, which is not a legal JSON escape.
	raw := `"{\"title\":\"it\'s fine\",\"media\":[{\"url\":\"https://i.imgur.com/a.mp4\"}]}"`

	post, err := parseImgurPostData(raw)
	require.NoError(t, err)
	require.Len(t, post.Media, 1)
	assert.Equal(t, "https://i.imgur.com/a.mp4", post.Media[0].URL)
}

func TestParseImgurPostDataMalformed(t *testing.T) {
	_, err := parseImgurPostData(`not json at all`)
	assert.Error(t, err)
}
