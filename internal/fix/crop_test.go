package fix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionRects(t *testing.T) {
	rects := []Rect{
		{W: 100, H: 80, X: 10, Y: 20},
		{W: 120, H: 60, X: 5, Y: 25},
		{W: 90, H: 90, X: 15, Y: 15},
	}

	merged, ok := unionRects(rects)
	require.True(t, ok)
	assert.Equal(t, 120, merged.W, "widest width wins")
	assert.Equal(t, 90, merged.H, "tallest height wins")
	assert.Equal(t, 5, merged.X, "leftmost offset wins")
	assert.Equal(t, 15, merged.Y, "topmost offset wins")
}

func TestUnionRectsSkipsDegenerate(t *testing.T) {
	rects := []Rect{
		{W: 1, H: 1, X: 0, Y: 0},      // below minimum side
		{W: 100, H: 2, X: 0, Y: 0},    // height too small
		{W: 100, H: 100, X: -5, Y: 0}, // negative offset
		{W: 50, H: 40, X: 3, Y: 4},
	}

	merged, ok := unionRects(rects)
	require.True(t, ok)
	assert.Equal(t, Rect{W: 50, H: 40, X: 3, Y: 4}, merged)
}

func TestUnionRectsAllDegenerate(t *testing.T) {
	_, ok := unionRects([]Rect{{W: 1, H: 1}, {}})
	assert.False(t, ok)
	_, ok = unionRects(nil)
	assert.False(t, ok)
}

func TestRectCovers(t *testing.T) {
	assert.True(t, Rect{W: 1920, H: 1080, X: 0, Y: 0}.covers(1920, 1080))
	assert.False(t, Rect{W: 1920, H: 1000, X: 0, Y: 0}.covers(1920, 1080))
	assert.False(t, Rect{W: 1920, H: 1080, X: 10, Y: 0}.covers(1920, 1080))
}

func TestRectIntersect(t *testing.T) {
	// A rectangle hanging over the frame edge is clamped to it.
	r := Rect{W: 200, H: 200, X: 1800, Y: 1000}.intersect(1920, 1080)
	assert.Equal(t, Rect{W: 120, H: 80, X: 1800, Y: 1000}, r)

	r = Rect{W: 100, H: 100, X: -10, Y: -20}.intersect(1920, 1080)
	assert.Equal(t, 0, r.X)
	assert.Equal(t, 0, r.Y)
}

func TestTrimLineParsing(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected *Rect
	}{
		{"plain geometry", "1280:690:+0:+28", &Rect{W: 1280, H: 690, X: 0, Y: 28}},
		{"negative offset", "640:480:-2:+0", &Rect{W: 640, H: 480, X: -2, Y: 0}},
		{"imagemagick noise skipped", "convert: some warning", nil},
		{"empty line skipped", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := trimLineRe.FindStringSubmatch(tt.line)
			if tt.expected == nil {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
		})
	}
}
