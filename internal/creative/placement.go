package creative

import (
	"fmt"

	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
)

// PlacementRule binds one asset, and the texts shown with it, to the
// placements that suit its aspect ratio.
type PlacementRule struct {
	Priority   int
	AssetKind  mediaprobe.Kind
	AssetLabel string
	BodyLabel  string
	TitleLabel string
	Targeting  PlacementTargeting
}

var placementTargets = map[mediaprobe.Aspect]PlacementTargeting{
	mediaprobe.AspectSquare: {
		PublisherPlatforms: []string{"facebook", "instagram"},
		FacebookPositions:  []string{"feed", "marketplace", "video_feeds", "search"},
		InstagramPositions: []string{"stream", "explore", "explore_home"},
	},
	mediaprobe.AspectPortrait: {
		PublisherPlatforms: []string{"facebook", "instagram"},
		FacebookPositions:  []string{"story", "facebook_reels"},
		InstagramPositions: []string{"story", "reels"},
	},
	mediaprobe.AspectLandscape: {
		PublisherPlatforms:       []string{"facebook", "audience_network"},
		FacebookPositions:        []string{"feed", "instream_video", "right_hand_column"},
		AudienceNetworkPositions: []string{"classic"},
	},
}

func newPlacementRule(i int, a Asset) PlacementRule {
	return PlacementRule{
		Priority:   i + 1,
		AssetKind:  a.Kind,
		AssetLabel: fmt.Sprintf("placement_%s_asset", a.Aspect),
		BodyLabel:  fmt.Sprintf("placement_%s_body", a.Aspect),
		TitleLabel: fmt.Sprintf("placement_%s_title", a.Aspect),
		Targeting:  placementTargets[a.Aspect],
	}
}

func (r PlacementRule) wire() CustomizationRule {
	cr := CustomizationRule{
		CustomizationSpec: r.Targeting,
		BodyLabel:         &AdLabel{Name: r.BodyLabel},
		TitleLabel:        &AdLabel{Name: r.TitleLabel},
		Priority:          r.Priority,
	}
	if r.AssetKind == mediaprobe.KindVideo {
		cr.VideoLabel = &AdLabel{Name: r.AssetLabel}
	} else {
		cr.ImageLabel = &AdLabel{Name: r.AssetLabel}
	}
	return cr
}
