package media

import (
	"path"
	"strings"
)

// DefaultContentType is served for extensions missing from contentTypes.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"avif": "image/avif",
	"bmp":  "image/bmp",
	"ico":  "image/x-icon",
	"svg":  "image/svg+xml",
	"mp4":  "video/mp4",
	"webm": "video/webm",
}

// ContentTypeForExt maps a file extension (with or without the dot) to a MIME type.
func ContentTypeForExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return DefaultContentType
}

// SplitObjectName splits the last path segment of a public media URL into
// its storage key and extension: "https://d/1700000000000.png" -> ("1700000000000", "png").
func SplitObjectName(rawURL string) (key, ext string) {
	name := path.Base(rawURL)
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}
