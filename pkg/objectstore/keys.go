package objectstore

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Sanitize lowercases the input and replaces every non-alphanumeric rune
// with '-'. It is idempotent and produces the project segment of every
// object key.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	return b.String()
}

// ProjectPrefix returns the key prefix for a project:
// <sanitize(name)>-<id>.
func ProjectPrefix(name, id string) string {
	return Sanitize(name) + "-" + id
}

// OriginalImageKey composes the key for an uploaded original image:
// <prefix>/images/original/<fileID>.<ext>.
func OriginalImageKey(prefix, fileID, ext string) string {
	return fmt.Sprintf("%s/images/original/%s.%s", prefix, fileID, ext)
}

// VariantKey composes the key for a derived image variant:
// <prefix>/images/<variant>/<fileID>.<ext>.
func VariantKey(prefix, variant, fileID, ext string) string {
	return fmt.Sprintf("%s/images/%s/%s.%s", prefix, variant, fileID, ext)
}

// RawFileKey composes the key for an arbitrary (non-image) file:
// <prefix>/files/<fileID>.<ext>.
func RawFileKey(prefix, fileID, ext string) string {
	return fmt.Sprintf("%s/files/%s.%s", prefix, fileID, ext)
}

// ExtensionForMIME maps a content type to the stored file extension.
// JPEG maps to "jpg"; anything outside the known image family is "bin".
func ExtensionForMIME(mime string) string {
	switch mime {
	case "image/avif":
		return "avif"
	case "image/webp":
		return "webp"
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	default:
		return "bin"
	}
}

// ExtensionForFilename derives the stored extension for an arbitrary file:
// the filename's own extension when present, otherwise the mime mapping.
func ExtensionForFilename(filename, mime string) string {
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return ExtensionForMIME(mime)
}

// ResolveKey maps a stored variant value to a bare object key. Values may
// be bare keys already or absolute URLs from older writes. If the value
// contains "/<bucket>/" the suffix after that segment is the key; otherwise
// the value is parsed as a URL and its path, leading '/' stripped, is the
// key. Unparseable values are returned unchanged.
func ResolveKey(bucket, value string) string {
	if bucket != "" {
		marker := "/" + bucket + "/"
		if idx := strings.Index(value, marker); idx >= 0 {
			return value[idx+len(marker):]
		}
	}

	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" {
		return value
	}
	return strings.TrimPrefix(u.Path, "/")
}
