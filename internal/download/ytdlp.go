package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/execx"
	"github.com/linkhoard/linkhoard/internal/fsutil"
	"github.com/linkhoard/linkhoard/internal/timeid"
)

// ytdlpImageHint is the stderr suffix yt-dlp emits for direct image
// links, which it refuses to download. The generic downloader handles
// those fine.
const ytdlpImageHint = "Maybe an image?"

// YTDLP shells out to yt-dlp for anything that needs format selection or
// site logic beyond a plain GET.
type YTDLP struct {
	resolver *execx.Resolver
	generic  *Generic
	logger   *slog.Logger
}

func NewYTDLP(resolver *execx.Resolver, generic *Generic, logger *slog.Logger) *YTDLP {
	if logger == nil {
		logger = slog.Default()
	}
	return &YTDLP{resolver: resolver, generic: generic, logger: logger}
}

func (y *YTDLP) Name() string        { return NameYTDLP }
func (y *YTDLP) Description() string { return "yt-dlp with MP4/MP3 format selection" }

func (y *YTDLP) CanRun() bool {
	return y.resolver.Available(execx.ToolYTDLP)
}

func (y *YTDLP) CanDownload(req *Request) bool {
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (y *YTDLP) Download(ctx context.Context, req *Request) (*Result, error) {
	binary, err := y.resolver.Path(execx.ToolYTDLP)
	if err != nil {
		return nil, errkind.Permanent(err)
	}

	scratch, err := fsutil.NewScope("", "ytdlp-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = scratch.Close() }()

	args := []string{
		"--no-check-certificate",
		"--socket-timeout", "120",
		"--no-part",
		"--no-mtime",
		"--no-embed-metadata",
		"--no-config",
		"--no-playlist",
		"--trim-filenames", "115",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-o", scratch.Path(timeid.New() + ".%(id).64s.%(ext)s"),
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Cookie") {
			cookieFile := scratch.Path("cookies.txt")
			if err := writeNetscapeCookies(cookieFile, hostOf(req.URL), v); err != nil {
				return nil, err
			}
			args = append(args, "--cookies", cookieFile)
			continue
		}
		args = append(args, "--add-header", fmt.Sprintf("%s:%s", k, v))
	}
	args = append(args, req.URL)

	res, err := execx.Run(ctx, binary, args, nil)
	if err != nil {
		if strings.HasSuffix(strings.TrimSpace(string(res.Stderr)), ytdlpImageHint) {
			y.logger.Debug("yt-dlp says it is an image, falling back", "url", req.URL)
			return y.generic.Download(ctx, req)
		}
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}

	produced := lastLine(res.Stdout)
	if produced == "" {
		return nil, errkind.Permanentf("yt-dlp printed no output path for %s", req.URL)
	}

	dest := filepath.Join(req.Dir, filepath.Base(produced))
	if err := copyFile(produced, dest); err != nil {
		return nil, err
	}
	return &Result{Request: req, Path: dest}, nil
}

func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(string(lines[len(lines)-1]))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return out.Close()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
