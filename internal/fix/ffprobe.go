package fix

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/execx"
)

// ProbeStream is one stream reported by ffprobe.
type ProbeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// ProbeResult is the ffprobe -show_streams JSON document.
type ProbeResult struct {
	Streams []ProbeStream `json:"streams"`
}

// FirstMedia returns the first video or audio stream, matching how the
// format decision table picks its subject. Image files show up as a
// single video stream (mjpeg, png).
func (p *ProbeResult) FirstMedia() *ProbeStream {
	for i := range p.Streams {
		s := &p.Streams[i]
		if s.CodecType == "video" || s.CodecType == "audio" {
			return s
		}
	}
	return nil
}

// Stream returns the first stream of the given codec type, or nil.
func (p *ProbeResult) Stream(codecType string) *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == codecType {
			return &p.Streams[i]
		}
	}
	return nil
}

// Probe runs ffprobe over path and decodes the stream table.
func Probe(ctx context.Context, resolver *execx.Resolver, path string) (*ProbeResult, error) {
	binary, err := resolver.Path(execx.ToolFFprobe)
	if err != nil {
		return nil, errkind.Permanent(err)
	}
	res, err := execx.Run(ctx, binary, []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		path,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	var probe ProbeResult
	if err := json.Unmarshal(res.Stdout, &probe); err != nil {
		return nil, errkind.Permanent(fmt.Errorf("failed to decode ffprobe output: %w", err))
	}
	return &probe, nil
}
