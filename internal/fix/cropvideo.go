package fix

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/execx"
	"github.com/linkhoard/linkhoard/internal/fsutil"
)

// CropVideoBars removes constant black or white bars around a video. The
// video is sampled at one frame per second, imagemagick trims every
// sample, and the union of the per-frame content rectangles becomes the
// crop.
type CropVideoBars struct {
	resolver *execx.Resolver
	cacheDir string
}

func NewCropVideoBars(resolver *execx.Resolver, cacheDir string) *CropVideoBars {
	return &CropVideoBars{resolver: resolver, cacheDir: cacheDir}
}

func (c *CropVideoBars) Name() string        { return "crop-video-bars" }
func (c *CropVideoBars) Description() string { return "crops constant bars off video frames" }

func (c *CropVideoBars) CanRun() bool {
	return c.resolver.Available(execx.ToolFFmpeg, execx.ToolFFprobe, execx.ToolImageMagick)
}

func (c *CropVideoBars) CanRunFor(ctx context.Context, req *Request) bool {
	probe, err := Probe(ctx, c.resolver, req.Path)
	if err != nil {
		return false
	}
	// Images come back as a single mjpeg/png video stream; those belong
	// to the image crop fixer.
	video := probe.Stream("video")
	return video != nil && !isImageCodec(video.CodecName)
}

func isImageCodec(codec string) bool {
	switch codec {
	case "mjpeg", "png", "webp", "gif", "bmp", "tiff":
		return true
	}
	return false
}

func (c *CropVideoBars) Run(ctx context.Context, req *Request) (*Result, error) {
	probe, err := Probe(ctx, c.resolver, req.Path)
	if err != nil {
		return nil, err
	}
	video := probe.Stream("video")
	if video == nil {
		return nil, errkind.Permanentf("%s has no video stream", filepath.Base(req.Path))
	}

	ffmpeg, err := c.resolver.Path(execx.ToolFFmpeg)
	if err != nil {
		return nil, errkind.Permanent(err)
	}

	scratch, err := fsutil.NewScope(c.cacheDir, "cropdetect-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = scratch.Close() }()

	// One sample per second keeps the imagemagick pass cheap even for
	// long videos.
	framePattern := scratch.Path("frame-%05d.jpg")
	if _, err := execx.Run(ctx, ffmpeg, []string{
		"-i", req.Path,
		"-vf", "fps=1",
		framePattern,
	}, nil); err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	frames, err := filepath.Glob(scratch.Path("frame-*.jpg"))
	if err != nil || len(frames) == 0 {
		return nil, errkind.Permanentf("no frames extracted from %s", filepath.Base(req.Path))
	}
	sort.Strings(frames)

	rects, err := detectTrim(ctx, c.resolver, frames)
	if err != nil {
		return nil, err
	}
	crop, ok := unionRects(rects)
	if !ok {
		return &Result{Request: req, Path: req.Path}, nil
	}
	crop = crop.intersect(video.Width, video.Height)
	if crop.covers(video.Width, video.Height) {
		return &Result{Request: req, Path: req.Path}, nil
	}

	ext := strings.TrimPrefix(filepath.Ext(req.Path), ".")
	stem := strings.TrimSuffix(req.Path, filepath.Ext(req.Path))
	dest := stem + ".ac." + ext

	if _, err := execx.Run(ctx, ffmpeg, []string{
		"-y",
		"-i", req.Path,
		"-vf", fmt.Sprintf("crop=%d:%d:%d:%d", crop.W, crop.H, crop.X, crop.Y),
		"-map_metadata", "0",
		"-movflags", "use_metadata_tags",
		"-preset", "slow",
		dest,
	}, nil); err != nil {
		return nil, fmt.Errorf("crop re-encode failed: %w", err)
	}

	if err := fsutil.Trash(req.Path); err != nil {
		return nil, err
	}
	return &Result{Request: req, Path: dest}, nil
}
