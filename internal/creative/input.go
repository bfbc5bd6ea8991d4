package creative

import (
	"net/url"
	"strings"

	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
)

// MaxTextVariants is the platform limit on titles, bodies and descriptions
// in an asset feed.
const MaxTextVariants = 5

// ShopDestinationType selects which onsite destination field is populated.
type ShopDestinationType string

const (
	ShopStorefront ShopDestinationType = "shop"
	ShopProductSet ShopDestinationType = "product_set"
	ShopProduct    ShopDestinationType = "product"
)

// ShopDestination sends clicks to a Facebook/Instagram shop surface.
type ShopDestination struct {
	Type ShopDestinationType
	ID   string
}

func (d ShopDestination) onsite() OnsiteDestination {
	switch d.Type {
	case ShopStorefront:
		return OnsiteDestination{StorefrontShopID: d.ID}
	case ShopProductSet:
		return OnsiteDestination{ShopCollectionProductSetID: d.ID}
	default:
		return OnsiteDestination{DetailsPageProductID: d.ID}
	}
}

// Input is the strategy-independent part of an ad.
type Input struct {
	AdName             string
	AdSetID            string
	PageID             string
	InstagramAccountID string

	Headlines    []string
	Bodies       []string
	Descriptions []string

	CallToAction string
	Link         string
	DisplayLink  string

	Shop         *ShopDestination
	URLTags      string
	Enhancements map[string]bool
	Paused       bool
}

// Asset is an uploaded asset as referenced by a payload.
type Asset struct {
	Kind          mediaprobe.Kind
	Name          string
	ImageHash     string
	VideoID       string
	ThumbnailHash string
	ThumbnailURL  string
	// Aspect is only set for placement-customized ads.
	Aspect mediaprobe.Aspect
}

func (in Input) validate() error {
	switch {
	case strings.TrimSpace(in.AdName) == "":
		return strategy.Invalid("adName", "ad name is required")
	case in.AdSetID == "":
		return strategy.Invalid("adSetId", "ad set is required")
	case in.PageID == "":
		return strategy.Invalid("pageId", "page is required")
	case in.CallToAction == "":
		return strategy.Invalid("cta", "call to action is required")
	case len(in.Headlines) == 0:
		return strategy.Invalid("headlines", "at least one headline is required")
	case len(in.Bodies) == 0:
		return strategy.Invalid("messages", "at least one primary text is required")
	}

	for field, texts := range map[string][]string{
		"headlines":    in.Headlines,
		"messages":     in.Bodies,
		"descriptions": in.Descriptions,
	} {
		if len(texts) > MaxTextVariants {
			return strategy.Invalid(field, "at most %d variants are allowed, got %d", MaxTextVariants, len(texts))
		}
	}

	if err := validateLink("link", in.Link); err != nil {
		return err
	}

	if in.Shop != nil {
		switch in.Shop.Type {
		case ShopStorefront, ShopProductSet, ShopProduct:
		default:
			return strategy.Invalid("shopDestinationType", "unknown shop destination type %q", in.Shop.Type)
		}
		if in.Shop.ID == "" {
			return strategy.Invalid("shopDestination", "shop destination id is required")
		}
	}
	return nil
}

func validateLink(field, raw string) error {
	if raw == "" {
		return strategy.Invalid(field, "destination link is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return strategy.Invalid(field, "destination link must be an http(s) URL")
	}
	return nil
}

func validateAsset(i int, a Asset) error {
	switch a.Kind {
	case mediaprobe.KindImage:
		if a.ImageHash == "" {
			return strategy.Invalid("mediaFiles", "image %d has no uploaded hash", i+1)
		}
	case mediaprobe.KindVideo:
		if a.VideoID == "" {
			return strategy.Invalid("mediaFiles", "video %d has no uploaded id", i+1)
		}
	default:
		return strategy.Invalid("mediaFiles", "asset %d has unsupported kind %q", i+1, a.Kind)
	}
	return nil
}

func (in Input) status() string {
	if in.Paused {
		return StatusPaused
	}
	return StatusActive
}

func (in Input) callToAction(link string) *CallToAction {
	return &CallToAction{Type: in.CallToAction, Value: CallToActionValue{Link: link}}
}

func (in Input) caption() string {
	if in.DisplayLink != "" {
		return in.DisplayLink
	}
	return in.Link
}

func (in Input) storySpec() *ObjectStorySpec {
	return &ObjectStorySpec{PageID: in.PageID, InstagramUserID: in.InstagramAccountID}
}

// degreesOfFreedom turns the enhancement map into a creative features spec.
// With no preferences the standard enhancements bundle is opted out.
func (in Input) degreesOfFreedom() *DegreesOfFreedomSpec {
	features := make(map[string]FeatureEnrollment, max(len(in.Enhancements), 1))
	if len(in.Enhancements) == 0 {
		features[StandardEnhancements] = FeatureEnrollment{EnrollStatus: OptOut}
	}
	for name, on := range in.Enhancements {
		status := OptOut
		if on {
			status = OptIn
		}
		features[name] = FeatureEnrollment{EnrollStatus: status}
	}
	return &DegreesOfFreedomSpec{CreativeFeaturesSpec: features}
}

// applyShop merges the shop destination into the feed spec, creating one
// when the creative has none.
func (in Input) applyShop(c *Creative) {
	if in.Shop == nil {
		return
	}
	if c.AssetFeedSpec == nil {
		c.AssetFeedSpec = &AssetFeedSpec{}
	}
	c.AssetFeedSpec.OnsiteDestinations = append(c.AssetFeedSpec.OnsiteDestinations, in.Shop.onsite())
}

func (in Input) linkURLs() []FeedLink {
	return []FeedLink{{WebsiteURL: in.Link, DisplayURL: in.DisplayLink}}
}

func feedTexts(texts []string) []FeedText {
	if len(texts) == 0 {
		return nil
	}
	out := make([]FeedText, len(texts))
	for i, t := range texts {
		out[i] = FeedText{Text: t}
	}
	return out
}

// textAt returns texts[i], falling back to the first entry.
func textAt(texts []string, i int) string {
	if i < len(texts) {
		return texts[i]
	}
	if len(texts) > 0 {
		return texts[0]
	}
	return ""
}

func first(texts []string) string {
	return textAt(texts, 0)
}
