// Package mediaprobe classifies ad media and measures its dimensions.
//
// Two providers are used, as for metadata extraction elsewhere:
//   - Images: pure Go (image.DecodeConfig plus golang.org/x/image decoders),
//     with EXIF orientation from evanoberholster/imagemeta.
//   - Videos: ffprobe, which also understands remote (presigned) URLs.
package mediaprobe

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Kind is the media category an asset is uploaded as.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// SupportedImageExtensions maps the image extensions the ad platform accepts to MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// SupportedVideoExtensions maps the video extensions the ad platform accepts to MIME types.
var SupportedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".3gp":  "video/3gpp",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
}

// IsImage returns true if the file extension corresponds to an image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// IsVideo returns true if the file extension corresponds to a video.
func IsVideo(ext string) bool {
	_, ok := SupportedVideoExtensions[strings.ToLower(ext)]
	return ok
}

// MIMEForName returns the MIME type implied by the file name's extension.
func MIMEForName(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := SupportedImageExtensions[ext]; ok {
		return t, nil
	}
	if t, ok := SupportedVideoExtensions[ext]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unsupported file extension: %q", ext)
}

// Classify decides the media kind from the declared MIME type, falling back
// to the file name's extension when the type is missing or generic.
func Classify(mimeType, name string) (Kind, string, error) {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		switch {
		case strings.HasPrefix(mt, "image/"):
			return KindImage, mt, nil
		case strings.HasPrefix(mt, "video/"):
			return KindVideo, mt, nil
		}
	}

	mt, err := MIMEForName(name)
	if err != nil {
		return "", "", fmt.Errorf("cannot determine media type of %q: %w", name, err)
	}
	if strings.HasPrefix(mt, "video/") {
		return KindVideo, mt, nil
	}
	return KindImage, mt, nil
}
