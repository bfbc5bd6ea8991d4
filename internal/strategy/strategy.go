// Package strategy decides how a set of assets is packaged into a creative
// and enforces the asset-count rules for each packaging.
package strategy

import (
	"fmt"

	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
)

// Strategy is the creative packaging chosen for a job.
type Strategy string

const (
	Single              Strategy = "single"
	Dynamic             Strategy = "dynamic"
	Carousel            Strategy = "carousel"
	PlacementCustomized Strategy = "placement_customized"
)

// Asset-count limits.
const (
	MinCarouselCards  = 2
	MaxCarouselCards  = 10
	MinPlacementAsset = 2
	MaxPlacementAsset = 3
	MaxDynamicAssets  = 10
)

// Inputs are the request flags that drive selection.
type Inputs struct {
	Carousel  bool
	Placement bool
	// AdSetDynamic reports whether the target ad set has dynamic creative enabled.
	AdSetDynamic bool
}

// ValidationError is a client-correctable request problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Select picks the strategy. Carousel wins over placement customization;
// both yield to a dynamic-creative ad set.
func Select(in Inputs) Strategy {
	switch {
	case in.Carousel && !in.AdSetDynamic:
		return Carousel
	case in.Placement && !in.AdSetDynamic:
		return PlacementCustomized
	case in.AdSetDynamic:
		return Dynamic
	default:
		return Single
	}
}

// Validate checks the asset count for s.
func Validate(s Strategy, assetCount int) error {
	switch s {
	case Carousel:
		if assetCount < MinCarouselCards || assetCount > MaxCarouselCards {
			return Invalid("mediaFiles", "carousel ads require between %d and %d media files, got %d",
				MinCarouselCards, MaxCarouselCards, assetCount)
		}
	case PlacementCustomized:
		if assetCount < MinPlacementAsset || assetCount > MaxPlacementAsset {
			return Invalid("mediaFiles", "placement customization requires %d or %d media files with different aspect ratios, got %d",
				MinPlacementAsset, MaxPlacementAsset, assetCount)
		}
	case Dynamic:
		if assetCount < 1 || assetCount > MaxDynamicAssets {
			return Invalid("mediaFiles", "dynamic creative ads require between 1 and %d media files, got %d",
				MaxDynamicAssets, assetCount)
		}
	case Single:
		if assetCount != 1 {
			return Invalid("mediaFiles", "a single ad requires exactly 1 media file, got %d", assetCount)
		}
	default:
		return Invalid("strategy", "unknown creative strategy %q", s)
	}
	return nil
}

// ValidateAspects requires pairwise distinct aspect categories.
func ValidateAspects(aspects []mediaprobe.Aspect) error {
	seen := make(map[mediaprobe.Aspect]int, len(aspects))
	for i, a := range aspects {
		if j, dup := seen[a]; dup {
			return Invalid("mediaFiles", "placement customization needs different aspect ratios, files %d and %d are both %s",
				j+1, i+1, a)
		}
		seen[a] = i
	}
	return nil
}
