package fix

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/webp"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/execx"
	"github.com/linkhoard/linkhoard/internal/fsutil"
)

// ErrUnknownCodec means the decision table has no handler for the file's
// codec.
var ErrUnknownCodec = errors.New("unknown codec")

// MediaFormats rewrites containers and codecs into the boring subset
// every player handles: h264/aac in mp4 for video, mp3 for audio, jpg or
// png for webp images. Files already in shape pass through untouched.
type MediaFormats struct {
	resolver *execx.Resolver
	cacheDir string
}

func NewMediaFormats(resolver *execx.Resolver, cacheDir string) *MediaFormats {
	return &MediaFormats{resolver: resolver, cacheDir: cacheDir}
}

func (m *MediaFormats) Name() string        { return "media-formats" }
func (m *MediaFormats) Description() string { return "normalizes containers and codecs" }

func (m *MediaFormats) CanRun() bool {
	return m.resolver.Available(execx.ToolFFmpeg, execx.ToolFFprobe)
}

// target describes what the decision table wants done with a file.
type target struct {
	rewrite bool
	ext     string   // output extension
	args    []string // codec portion of the ffmpeg argument list
}

func (m *MediaFormats) CanRunFor(ctx context.Context, req *Request) bool {
	t, err := m.decide(ctx, req.Path)
	if err != nil {
		return false
	}
	return t.rewrite
}

func (m *MediaFormats) Run(ctx context.Context, req *Request) (*Result, error) {
	t, err := m.decide(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	if !t.rewrite {
		return &Result{Request: req, Path: req.Path}, nil
	}

	times, err := fsutil.FileTimes(req.Path)
	if err != nil {
		return nil, err
	}
	out, err := m.transcode(ctx, req.Path, t)
	if err != nil {
		return nil, err
	}
	if err := fsutil.Trash(req.Path); err != nil {
		return nil, err
	}
	if err := fsutil.ApplyTimes(out, times); err != nil {
		return nil, err
	}
	return &Result{Request: req, Path: out}, nil
}

// decide probes path and evaluates the codec decision table.
func (m *MediaFormats) decide(ctx context.Context, path string) (*target, error) {
	probe, err := Probe(ctx, m.resolver, path)
	if err != nil {
		return nil, err
	}
	return m.targetFor(probe, path)
}

// targetFor is the decision table proper, separated from the ffprobe
// invocation so it can be driven from stream fixtures.
func (m *MediaFormats) targetFor(probe *ProbeResult, path string) (*target, error) {
	stream := probe.FirstMedia()
	if stream == nil {
		return nil, errkind.Permanentf("%s has no media streams", filepath.Base(path))
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	toMP4 := &target{rewrite: true, ext: "mp4", args: []string{"-c:v", "libx264", "-c:a", "aac"}}

	switch stream.CodecName {
	case "mp3":
		return &target{}, nil
	case "h264":
		audio := probe.Stream("audio")
		if (audio == nil || audio.CodecName == "aac") && ext == "mp4" {
			return &target{}, nil
		}
		return toMP4, nil
	case "mpeg4", "vp8", "vp9", "av1", "hevc":
		return toMP4, nil
	case "png", "mjpeg", "gif":
		return &target{}, nil
	case "webp":
		return m.decideWebp(path)
	default:
		if stream.CodecType == "audio" {
			return &target{rewrite: true, ext: "mp3", args: []string{"-c:a", "mp3"}}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, stream.CodecName)
	}
}

// decideWebp decodes the image and routes it by transparency.
func (m *MediaFormats) decideWebp(path string) (*target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	img, err := webp.Decode(f)
	if err != nil {
		return nil, errkind.Permanent(fmt.Errorf("failed to decode webp: %w", err))
	}
	return webpTarget(img)
}

// webpTarget picks jpg for fully opaque webp and png when the alpha
// channel is in use. Lossy and lossless variants both decode to
// standard image types, so Opaque is the reliable signal.
func webpTarget(img image.Image) (*target, error) {
	op, ok := img.(interface{ Opaque() bool })
	if !ok {
		return nil, fmt.Errorf("%w: webp image %T", ErrUnknownCodec, img)
	}
	if op.Opaque() {
		return &target{rewrite: true, ext: "jpg", args: []string{"-c:v", "mjpeg"}}, nil
	}
	return &target{rewrite: true, ext: "png", args: []string{"-c:v", "png"}}, nil
}

// transcode runs ffmpeg into an isolated scratch directory, then moves
// the result next to the input with the new extension.
func (m *MediaFormats) transcode(ctx context.Context, path string, t *target) (string, error) {
	binary, err := m.resolver.Path(execx.ToolFFmpeg)
	if err != nil {
		return "", errkind.Permanent(err)
	}

	scratch, err := fsutil.NewScope(m.cacheDir, "transcode-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = scratch.Close() }()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmpOut := scratch.Path(stem + "." + t.ext)

	args := []string{"-y", "-i", path}
	args = append(args, t.args...)
	args = append(args,
		"-max_muxing_queue_size", "1024",
		"-b:a", "256k",
		"-preset", "slow",
		"-map_metadata", "-1",
	)
	if t.ext == "mp4" {
		// Even dimensions are required by yuv420p output.
		args = append(args, "-vf", "scale=ceil(iw/2)*2:ceil(ih/2)*2")
	}
	args = append(args, tmpOut)

	if _, err := execx.Run(ctx, binary, args, nil); err != nil {
		return "", fmt.Errorf("ffmpeg transcode failed: %w", err)
	}

	dest := filepath.Join(filepath.Dir(path), stem+"."+t.ext)
	if err := fsutil.MoveFile(tmpOut, dest); err != nil {
		return "", err
	}
	return dest, nil
}
