package fsutil

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// MaxFilenameLength caps the stem of generated filenames, counted in
// grapheme clusters so multi-codepoint emoji are not split.
const MaxFilenameLength = 120

// SafeFilename strips control characters and the characters that are
// reserved on common filesystems, then truncates to MaxFilenameLength
// graphemes.
func SafeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			continue
		}
		b.WriteRune(r)
	}
	return TruncateGraphemes(b.String(), MaxFilenameLength)
}

// TruncateGraphemes cuts s after at most max grapheme clusters.
func TruncateGraphemes(s string, max int) string {
	if uniseg.GraphemeClusterCount(s) <= max {
		return s
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for i := 0; i < max && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	return b.String()
}
