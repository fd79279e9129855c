package fix

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/linkhoard/linkhoard/internal/execx"
	"github.com/linkhoard/linkhoard/internal/fsutil"
)

// CropImage trims uniform borders off a single image using the same
// imagemagick pipeline as the video variant, writing a sibling file.
type CropImage struct {
	resolver *execx.Resolver
}

func NewCropImage(resolver *execx.Resolver) *CropImage {
	return &CropImage{resolver: resolver}
}

func (c *CropImage) Name() string        { return "crop-image" }
func (c *CropImage) Description() string { return "crops uniform borders off images" }

func (c *CropImage) CanRun() bool {
	return c.resolver.Available(execx.ToolImageMagick)
}

func (c *CropImage) CanRunFor(ctx context.Context, req *Request) bool {
	return fsutil.IsImage(req.Path)
}

func (c *CropImage) Run(ctx context.Context, req *Request) (*Result, error) {
	rects, err := detectTrim(ctx, c.resolver, []string{req.Path})
	if err != nil {
		return nil, err
	}
	crop, ok := unionRects(rects)
	if !ok {
		return &Result{Request: req, Path: req.Path}, nil
	}

	width, height, err := imageSize(req.Path)
	if err != nil {
		return nil, err
	}
	crop = crop.intersect(width, height)
	if crop.covers(width, height) {
		return &Result{Request: req, Path: req.Path}, nil
	}

	binary, err := c.resolver.Path(execx.ToolImageMagick)
	if err != nil {
		return nil, err
	}
	ext := strings.TrimPrefix(filepath.Ext(req.Path), ".")
	stem := strings.TrimSuffix(req.Path, filepath.Ext(req.Path))
	dest := stem + ".ac." + ext

	if _, err := execx.Run(ctx, binary, []string{
		req.Path,
		"-crop", fmt.Sprintf("%dx%d+%d+%d", crop.W, crop.H, crop.X, crop.Y),
		"+repage",
		dest,
	}, nil); err != nil {
		return nil, fmt.Errorf("imagemagick crop failed: %w", err)
	}
	return &Result{Request: req, Path: dest}, nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image dimensions: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
