package fix

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/execx"
)

// Rect is a crop rectangle in the coordinate space of the source frame.
type Rect struct {
	W, H, X, Y int
}

// covers reports whether r spans the whole of a WxH frame.
func (r Rect) covers(w, h int) bool {
	return r.X <= 0 && r.Y <= 0 && r.W >= w && r.H >= h
}

// intersect clamps r to a WxH frame anchored at the origin.
func (r Rect) intersect(w, h int) Rect {
	out := r
	if out.X < 0 {
		out.X = 0
	}
	if out.Y < 0 {
		out.Y = 0
	}
	if out.X+out.W > w {
		out.W = w - out.X
	}
	if out.Y+out.H > h {
		out.H = h - out.Y
	}
	return out
}

// minRectSide discards trim results smaller than this; they are artifacts
// of near-uniform frames, not real content bounds.
const minRectSide = 4

// unionRects merges per-frame trim rectangles into the single crop that
// keeps every frame's content: widest width, tallest height, leftmost and
// topmost offsets. Degenerate rectangles are skipped.
func unionRects(rects []Rect) (Rect, bool) {
	merged := Rect{}
	found := false
	for _, r := range rects {
		if r.W < minRectSide || r.H < minRectSide || r.X < 0 || r.Y < 0 {
			continue
		}
		if !found {
			merged = r
			found = true
			continue
		}
		if r.W > merged.W {
			merged.W = r.W
		}
		if r.H > merged.H {
			merged.H = r.H
		}
		if r.X < merged.X {
			merged.X = r.X
		}
		if r.Y < merged.Y {
			merged.Y = r.Y
		}
	}
	return merged, found
}

var trimLineRe = regexp.MustCompile(`^(\d+):(\d+):\+?(-?\d+):\+?(-?\d+)$`)

// detectTrim runs one imagemagick pass over every input image: shave a
// 2px border, two fuzz-trim passes, and report the resulting geometry per
// image as "%w:%h:%X:%Y".
func detectTrim(ctx context.Context, resolver *execx.Resolver, inputs []string) ([]Rect, error) {
	binary, err := resolver.Path(execx.ToolImageMagick)
	if err != nil {
		return nil, errkind.Permanent(err)
	}

	args := make([]string, 0, len(inputs)+12)
	args = append(args, inputs...)
	args = append(args,
		"-shave", "2x2",
		"-fuzz", "15%", "-trim",
		"-fuzz", "15%", "-trim",
		"-format", "%w:%h:%X:%Y\n",
		"info:",
	)

	var rects []Rect
	err = execx.StreamLines(ctx, binary, args, func(line string) error {
		m := trimLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil
		}
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		x, _ := strconv.Atoi(m[3])
		y, _ := strconv.Atoi(m[4])
		rects = append(rects, Rect{W: w, H: h, X: x, Y: y})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("imagemagick trim detection failed: %w", err)
	}
	return rects, nil
}
