package mediaprobe

import (
	"fmt"
	"math"
)

// Aspect is a coarse aspect-ratio bucket used to target placements.
type Aspect string

const (
	AspectSquare    Aspect = "square"
	AspectLandscape Aspect = "landscape"
	AspectPortrait  Aspect = "portrait"
)

// Dimensions are display dimensions, after any rotation is applied.
type Dimensions struct {
	Width  int
	Height int
}

// Ratio returns width / height.
func (d Dimensions) Ratio() float64 {
	if d.Height == 0 {
		return 0
	}
	return float64(d.Width) / float64(d.Height)
}

// Images and videos use different square tolerances and landscape cut-offs.
const (
	imageSquareTolerance = 0.1
	imageLandscapeRatio  = 1.3
	videoSquareTolerance = 0.05
	videoLandscapeRatio  = 1.0
)

// Categorize buckets dimensions into square, landscape or portrait.
func Categorize(kind Kind, d Dimensions) (Aspect, error) {
	if d.Width <= 0 || d.Height <= 0 {
		return "", fmt.Errorf("invalid dimensions %dx%d", d.Width, d.Height)
	}

	squareTol, landscapeMin := imageSquareTolerance, imageLandscapeRatio
	if kind == KindVideo {
		squareTol, landscapeMin = videoSquareTolerance, videoLandscapeRatio
	}

	r := d.Ratio()
	switch {
	case math.Abs(r-1) <= squareTol:
		return AspectSquare, nil
	case r > landscapeMin:
		return AspectLandscape, nil
	default:
		return AspectPortrait, nil
	}
}
