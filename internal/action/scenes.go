package action

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

// SplitScenes cuts a video at detected scene boundaries. scenedetect
// writes the pieces into an isolated scratch directory; the pieces are
// then moved next to the input.
type SplitScenes struct {
	resolver *execx.Resolver
	cacheDir string
}

func NewSplitScenes(resolver *execx.Resolver, cacheDir string) *SplitScenes {
	return &SplitScenes{resolver: resolver, cacheDir: cacheDir}
}

func (s *SplitScenes) Name() string        { return "split-scenes" }
func (s *SplitScenes) Description() string { return "splits a video at scene boundaries" }

func (s *SplitScenes) CanRun() bool {
	return s.resolver.Available(execx.ToolSceneDetect, execx.ToolFFmpeg)
}

func (s *SplitScenes) Run(ctx context.Context, req *Request) (*Result, error) {
	binary, err := s.resolver.Path(execx.ToolSceneDetect)
	if err != nil {
		return nil, errkind.Permanent(err)
	}

	scratch, err := fsutil.NewScope(s.cacheDir, "scenes-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = scratch.Close() }()

	stem := strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
	if _, err := execx.Run(ctx, binary, []string{
		"--input", req.Path,
		"detect-adaptive",
		"split-video",
		"--high-quality",
		"--preset", "medium",
		"--output", scratch.Dir(),
		"--filename", "$VIDEO_NAME.$SCENE_NUMBER",
	}, nil); err != nil {
		return nil, fmt.Errorf("scene split failed: %w", err)
	}

	pieces, err := filepath.Glob(scratch.Path(stem + ".*"))
	if err != nil || len(pieces) == 0 {
		return nil, errkind.Permanentf("no scenes produced for %s", filepath.Base(req.Path))
	}
	sort.Strings(pieces)

	dir := filepath.Dir(req.Path)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		dest := filepath.Join(dir, filepath.Base(p))
		if err := fsutil.MoveFile(p, dest); err != nil {
			return nil, fmt.Errorf("failed to move scene %s: %w", filepath.Base(p), err)
		}
		out = append(out, dest)
	}
	return &Result{Request: req, Files: out}, nil
}
