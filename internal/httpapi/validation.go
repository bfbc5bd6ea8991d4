package httpapi

import (
	"fmt"
	"strings"
)

// --- Upload Validation ---

// allowedContentTypes is the content-type allowlist for browser uploads.
// It is limited to formats the ad platform accepts.
var allowedContentTypes = map[string]bool{
	// Photos
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/tiff": true,
	"image/bmp":  true,
	// Videos
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/webm":       true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
	"video/x-m4v":      true,
	"video/3gpp":       true,
	"video/mpeg":       true,
}

const maxPhotoSize int64 = 30 * 1024 * 1024       // 30 MB
const maxVideoSize int64 = 4 * 1024 * 1024 * 1024 // 4 GB

func isVideoContentType(ct string) bool {
	return strings.HasPrefix(ct, "video/")
}

// validateUploadSize rejects files over the platform limit for their kind.
// A non-positive size is unknown and accepted.
func validateUploadSize(name, contentType string, size int64) error {
	limit, kind := maxPhotoSize, "image"
	if isVideoContentType(contentType) {
		limit, kind = maxVideoSize, "video"
	}
	if size > limit {
		return fmt.Errorf("%s is too large: %s files are limited to %d MB", name, kind, limit>>20)
	}
	return nil
}
