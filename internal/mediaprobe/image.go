package mediaprobe

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageDimensions reads the pixel dimensions of an image file without
// decoding the pixel data. EXIF orientations 5-8 (rotated 90°) swap width
// and height so the result matches what viewers display.
func ImageDimensions(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return imageDimensions(f)
}

func imageDimensions(r io.ReadSeeker) (Dimensions, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Dimensions{}, fmt.Errorf("decode image header: %w", err)
	}
	d := Dimensions{Width: cfg.Width, Height: cfg.Height}

	if format == "jpeg" || format == "tiff" {
		if _, err := r.Seek(0, io.SeekStart); err == nil {
			if rotated, ok := exifRotated(r); ok && rotated {
				d.Width, d.Height = d.Height, d.Width
			}
		}
	}

	log.Trace().Str("format", format).Int("width", d.Width).Int("height", d.Height).Msg("Image dimensions")
	return d, nil
}

// exifRotated reports whether the EXIF orientation is one of the transposing
// values (5-8). ok is false when no EXIF block could be read.
func exifRotated(r io.ReadSeeker) (rotated, ok bool) {
	exifData, err := imagemeta.Decode(r)
	if err != nil {
		return false, false
	}
	o := int(exifData.Orientation)
	return o >= 5 && o <= 8, true
}
