package fsutil

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extByMime maps the MIME types we commonly receive from media hosts to a
// preferred extension. mime.ExtensionsByType is consulted for anything
// else.
var extByMime = map[string]string{
	"video/mp4":        "mp4",
	"video/webm":       "webm",
	"video/quicktime":  "mov",
	"video/x-matroska": "mkv",
	"video/mpeg":       "mpeg",
	"audio/mpeg":       "mp3",
	"audio/mp4":        "m4a",
	"audio/ogg":        "ogg",
	"audio/flac":       "flac",
	"audio/wav":        "wav",
	"audio/x-wav":      "wav",
	"image/jpeg":       "jpg",
	"image/png":        "png",
	"image/gif":        "gif",
	"image/webp":       "webp",
	"image/avif":       "avif",
	"image/bmp":        "bmp",
	"image/tiff":       "tiff",
	"application/zip":  "zip",
	"application/pdf":  "pdf",
	"text/plain":       "txt",
	"text/html":        "html",
	"application/json": "json",
}

// DetectMime sniffs the MIME type of path by magic bytes, falling back to
// the extension when the content is not recognizable.
func DetectMime(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to sniff %s: %w", filepath.Base(path), err)
	}
	if mt.Is("application/octet-stream") {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			return stripParams(byExt), nil
		}
	}
	return mt.String(), nil
}

// ExtForPath returns the extension the sniffed content of path calls for,
// without the leading dot. Empty when the content is unrecognizable.
func ExtForPath(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to sniff %s: %w", filepath.Base(path), err)
	}
	if mt.Is("application/octet-stream") {
		return "", nil
	}
	return ExtByMime(mt.String()), nil
}

// ExtByMime maps a MIME type (parameters ignored) to an extension without
// the leading dot. Empty when unknown.
func ExtByMime(mimeType string) string {
	mimeType = stripParams(mimeType)
	if ext, ok := extByMime[mimeType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}

// IsMedia reports whether the sniffed MIME type of path is audio or video.
func IsMedia(path string) bool {
	mt, err := DetectMime(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/")
}

// IsImage reports whether the sniffed MIME type of path is an image.
func IsImage(path string) bool {
	mt, err := DetectMime(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/")
}

func stripParams(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}
