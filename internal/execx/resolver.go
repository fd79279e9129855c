// Package execx is the substrate for invoking external binaries (ffmpeg,
// ffprobe, yt-dlp, scenedetect, imagemagick). Paths are resolved once at
// startup; components whose tool is missing report themselves as unable
// to run and stay out of their registry.
package execx

import (
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
)

// Tool identifies one of the external binaries the pipeline knows about.
type Tool string

const (
	ToolYTDLP       Tool = "yt-dlp"
	ToolFFmpeg      Tool = "ffmpeg"
	ToolFFprobe     Tool = "ffprobe"
	ToolSceneDetect Tool = "scenedetect"
	ToolImageMagick Tool = "magick"
)

// ToolInfo describes a resolved binary.
type ToolInfo struct {
	Tool      Tool
	Binary    string // full path, empty when unavailable
	Version   string
	Available bool
}

// Overrides carries explicit binary paths from configuration. An empty
// field means "look it up on PATH".
type Overrides struct {
	YTDLP       string
	FFmpeg      string
	FFprobe     string
	SceneDetect string
	ImageMagick string
}

// Resolver holds the resolved tool table. It is read-only after New.
type Resolver struct {
	tools map[Tool]*ToolInfo
}

// NewResolver resolves every known tool once. Missing tools are not an
// error; they simply gate the components that need them.
func NewResolver(ov Overrides, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{tools: make(map[Tool]*ToolInfo)}
	resolve := func(tool Tool, override string) {
		info := &ToolInfo{Tool: tool}
		path := override
		if path == "" {
			found, err := exec.LookPath(string(tool))
			if err != nil {
				r.tools[tool] = info
				logger.Debug("tool not found", "tool", tool)
				return
			}
			path = found
		} else if _, err := exec.LookPath(path); err != nil {
			r.tools[tool] = info
			logger.Warn("configured tool path is not executable", "tool", tool, "path", path)
			return
		}
		info.Binary = path
		info.Available = true
		info.Version, _ = toolVersion(path)
		r.tools[tool] = info
		logger.Debug("resolved tool", "tool", tool, "path", path, "version", info.Version)
	}

	resolve(ToolYTDLP, ov.YTDLP)
	resolve(ToolFFmpeg, ov.FFmpeg)
	resolve(ToolFFprobe, ov.FFprobe)
	resolve(ToolSceneDetect, ov.SceneDetect)
	resolve(ToolImageMagick, ov.ImageMagick)
	return r
}

// Lookup returns the resolved info for tool.
func (r *Resolver) Lookup(tool Tool) ToolInfo {
	if info, ok := r.tools[tool]; ok {
		return *info
	}
	return ToolInfo{Tool: tool}
}

// Available reports whether every listed tool resolved.
func (r *Resolver) Available(tools ...Tool) bool {
	for _, t := range tools {
		if !r.Lookup(t).Available {
			return false
		}
	}
	return true
}

// Path returns the binary path for tool, or an error when unavailable.
func (r *Resolver) Path(tool Tool) (string, error) {
	info := r.Lookup(tool)
	if !info.Available {
		return "", fmt.Errorf("%s not found in PATH and no path configured", tool)
	}
	return info.Binary, nil
}

var (
	datePattern    = regexp.MustCompile(`(\d{4}\.\d{2}\.\d{2})`)
	versionPattern = regexp.MustCompile(`version\s+([^\s,]+)`)
	genericPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)
)

// toolVersion probes `<tool> --version` and extracts something
// version-shaped from the first line. Handles the yt-dlp date format,
// the ffmpeg "version X" format and plain X.Y.Z.
func toolVersion(path string) (string, error) {
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get version for %s: %w", path, err)
	}
	first := strings.TrimSpace(string(out))
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if m := datePattern.FindStringSubmatch(first); len(m) > 1 {
		return m[1], nil
	}
	if m := versionPattern.FindStringSubmatch(first); len(m) > 1 {
		return m[1], nil
	}
	if m := genericPattern.FindStringSubmatch(first); len(m) > 1 {
		return m[1], nil
	}
	if len(first) > 0 && len(first) < 100 {
		return first, nil
	}
	return "", fmt.Errorf("failed to parse version output")
}
