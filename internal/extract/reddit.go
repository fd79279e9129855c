package extract

import "context"

// Reddit routes i.redd.it media through yt-dlp, whose format selection
// copes with reddit's DASH variants.
type Reddit struct{}

func NewReddit() *Reddit { return &Reddit{} }

func (r *Reddit) Name() string        { return "reddit" }
func (r *Reddit) Description() string { return "i.redd.it direct media" }

func (r *Reddit) CanHandle(ctx context.Context, req *Request) bool {
	return hostOf(req.URL) == "i.redd.it"
}

func (r *Reddit) Extract(ctx context.Context, req *Request) (*Info, error) {
	return &Info{
		Request: req,
		URLs:    []URL{{URL: req.URL, Downloader: DownloaderYTDLP}},
	}, nil
}
