package constants

import "strings"

// Format is the document family a converter engine understands.
type Format string

const (
	PDF   Format = "PDF"
	IMAGE Format = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted at upload.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

var mediaTypeFormats = map[string]Format{
	"application/pdf":   PDF,
	"application/x-pdf": PDF,
	"image/png":         IMAGE,
	"image/jpeg":        IMAGE,
	"image/jpg":         IMAGE,
	"image/pjpeg":       IMAGE,
}

// canonical media type and scratch-file extension per accepted extension
var extMediaTypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) may be uploaded.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat returns the format for an accepted extension, or "" if unknown.
func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return ""
	}
}

// NormalizeMediaType strips parameters and lowercases a MIME type.
func NormalizeMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// MapMediaTypeToFormat returns the format for a declared MIME type, or "" if unknown.
func MapMediaTypeToFormat(mt string) Format {
	return mediaTypeFormats[NormalizeMediaType(mt)]
}

// MediaTypeForExt returns the canonical MIME type for an accepted extension.
func MediaTypeForExt(ext string) string {
	return extMediaTypes[NormalizeExt(ext)]
}

// ScratchExt returns the extension used for scratch files of a given media type.
// It never derives from a user-provided filename.
func ScratchExt(mt string) string {
	switch NormalizeMediaType(mt) {
	case "application/pdf", "application/x-pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}
