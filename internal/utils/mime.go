package utils

import (
	"mime"
	"strings"
)

// ExtensionFromMime maps an image MIME type to a file extension, returning ""
// for unknown types.
func ExtensionFromMime(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}

	switch strings.ToLower(mimeType) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/avif":
		return "avif"
	default:
		return ""
	}
}

// TruncateLabel shortens free text for display in record labels, keeping the
// first limit runes and appending an ellipsis.
func TruncateLabel(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "…"
}
