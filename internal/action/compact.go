package action

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/execx"
	"github.com/linkhoard/linkhoard/internal/fsutil"
)

// Compact re-encodes audio or video to a small 480p preset for sharing
// over size-capped channels. The output is a sibling `.c.<ext>` file;
// the original is kept.
type Compact struct {
	resolver *execx.Resolver
}

func NewCompact(resolver *execx.Resolver) *Compact {
	return &Compact{resolver: resolver}
}

func (c *Compact) Name() string        { return "compact" }
func (c *Compact) Description() string { return "re-encodes media to a small 480p preset" }

func (c *Compact) CanRun() bool {
	return c.resolver.Available(execx.ToolFFmpeg)
}

func (c *Compact) Run(ctx context.Context, req *Request) (*Result, error) {
	if !fsutil.IsMedia(req.Path) {
		return nil, errkind.Permanentf("%s is not audio or video", filepath.Base(req.Path))
	}
	binary, err := c.resolver.Path(execx.ToolFFmpeg)
	if err != nil {
		return nil, errkind.Permanent(err)
	}

	ext := strings.TrimPrefix(filepath.Ext(req.Path), ".")
	stem := strings.TrimSuffix(req.Path, filepath.Ext(req.Path))
	dest := stem + ".c." + ext

	if _, err := execx.Run(ctx, binary, []string{
		"-y",
		"-i", req.Path,
		"-c:v", "libx264",
		"-crf", "29",
		"-c:a", "aac",
		"-b:a", "192k",
		"-vf", "scale=-2:480",
		"-preset", "slow",
		"-movflags", "+faststart",
		"-map_metadata", "-1",
		"-af", "channelmap=0",
		dest,
	}, nil); err != nil {
		return nil, fmt.Errorf("compact re-encode failed: %w", err)
	}
	return &Result{Request: req, Files: []string{dest}}, nil
}
