// Package creative builds the Marketing API payloads for each creative
// strategy. Specs are produced only by validating constructors, so a Spec
// value always describes a payload the platform can accept structurally.
package creative

import (
	"fmt"

	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
)

// Spec is a validated, strategy-specific ad description.
type Spec interface {
	Strategy() strategy.Strategy
	// Creative is the creative payload, inline for single-call strategies.
	Creative() *Creative
	// Ad returns the ad payload. An empty creativeID embeds the creative inline.
	Ad(creativeID string) *Ad
	// CreativeFirst reports whether the creative must be created on its
	// own before the ad can reference it.
	CreativeFirst() bool
}

type base struct {
	name     string
	adSetID  string
	status   string
	creative *Creative
}

func newBase(in Input, c *Creative) base {
	c.URLTags = in.URLTags
	in.applyShop(c)
	return base{name: in.AdName, adSetID: in.AdSetID, status: in.status(), creative: c}
}

func (b base) Creative() *Creative { return b.creative }

func (b base) Ad(creativeID string) *Ad {
	ad := &Ad{Name: b.name, AdSetID: b.adSetID, Status: b.status, Creative: b.creative}
	if creativeID != "" {
		ad.Creative = &Creative{CreativeID: creativeID}
	}
	return ad
}

func (b base) CreativeFirst() bool { return false }

// SingleSpec is one image or video with fixed or variant texts.
type SingleSpec struct{ base }

func (*SingleSpec) Strategy() strategy.Strategy { return strategy.Single }

// DynamicSpec lets the platform combine assets and texts.
type DynamicSpec struct{ base }

func (*DynamicSpec) Strategy() strategy.Strategy { return strategy.Dynamic }

// CarouselSpec is an ordered set of cards created as a standalone creative.
type CarouselSpec struct{ base }

func (*CarouselSpec) Strategy() strategy.Strategy { return strategy.Carousel }

func (*CarouselSpec) CreativeFirst() bool { return true }

// PlacementSpec maps each asset to the placements matching its aspect ratio.
type PlacementSpec struct {
	base
	rules []PlacementRule
}

func (*PlacementSpec) Strategy() strategy.Strategy { return strategy.PlacementCustomized }

// Build dispatches to the constructor for s. carousel is only consulted for
// Dynamic, where it switches the feed to the carousel format.
func Build(s strategy.Strategy, in Input, assets []Asset, carousel bool) (Spec, error) {
	switch s {
	case strategy.Single:
		if err := strategy.Validate(s, len(assets)); err != nil {
			return nil, err
		}
		return NewSingle(in, assets[0])
	case strategy.Dynamic:
		return NewDynamic(in, assets, carousel)
	case strategy.Carousel:
		return NewCarousel(in, assets)
	case strategy.PlacementCustomized:
		return NewPlacement(in, assets)
	default:
		return nil, strategy.Invalid("strategy", "unknown creative strategy %q", s)
	}
}

// NewSingle builds a single-asset ad. With more than one variant for any
// text field the media stays in object_story_spec and the variants move to
// an asset feed optimised per viewer.
func NewSingle(in Input, asset Asset) (*SingleSpec, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := validateAsset(0, asset); err != nil {
		return nil, err
	}

	variants := len(in.Headlines) > 1 || len(in.Bodies) > 1 || len(in.Descriptions) > 1
	story := in.storySpec()
	cta := in.callToAction(in.Link)

	switch asset.Kind {
	case mediaprobe.KindVideo:
		if asset.ThumbnailHash == "" && asset.ThumbnailURL == "" {
			return nil, strategy.Invalid("thumbnail", "video ads need a thumbnail")
		}
		vd := &VideoData{
			VideoID:      asset.VideoID,
			ImageHash:    asset.ThumbnailHash,
			CallToAction: cta,
		}
		if asset.ThumbnailHash == "" {
			vd.ImageURL = asset.ThumbnailURL
		}
		if !variants {
			vd.Title = first(in.Headlines)
			vd.Message = first(in.Bodies)
			vd.LinkDescription = first(in.Descriptions)
		}
		story.VideoData = vd
	default:
		ld := &LinkData{
			Link:         in.Link,
			Caption:      in.caption(),
			ImageHash:    asset.ImageHash,
			CallToAction: cta,
		}
		if !variants {
			ld.Name = first(in.Headlines)
			ld.Message = first(in.Bodies)
			ld.Description = first(in.Descriptions)
		}
		story.LinkData = ld
	}

	c := &Creative{
		Name:                 in.AdName,
		ObjectStorySpec:      story,
		DegreesOfFreedomSpec: in.degreesOfFreedom(),
	}
	if variants {
		c.AssetFeedSpec = &AssetFeedSpec{
			Titles:           feedTexts(in.Headlines),
			Bodies:           feedTexts(in.Bodies),
			Descriptions:     feedTexts(in.Descriptions),
			OptimizationType: OptimizationDegreesOfFreedom,
		}
	}
	return &SingleSpec{newBase(in, c)}, nil
}

// NewDynamic builds a dynamic creative over all assets and text variants.
func NewDynamic(in Input, assets []Asset, carousel bool) (*DynamicSpec, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := strategy.Validate(strategy.Dynamic, len(assets)); err != nil {
		return nil, err
	}

	feed := &AssetFeedSpec{
		Titles:            feedTexts(in.Headlines),
		Bodies:            feedTexts(in.Bodies),
		Descriptions:      feedTexts(in.Descriptions),
		CallToActionTypes: []string{in.CallToAction},
		LinkURLs:          in.linkURLs(),
	}
	for i, a := range assets {
		if err := validateAsset(i, a); err != nil {
			return nil, err
		}
		if a.Kind == mediaprobe.KindVideo {
			feed.Videos = append(feed.Videos, FeedVideo{
				VideoID:       a.VideoID,
				ThumbnailHash: a.ThumbnailHash,
				ThumbnailURL:  thumbnailURLIfNoHash(a),
			})
			continue
		}
		feed.Images = append(feed.Images, FeedImage{Hash: a.ImageHash})
	}

	switch {
	case carousel:
		feed.AdFormats = []string{FormatCarousel}
	default:
		if len(feed.Images) > 0 {
			feed.AdFormats = append(feed.AdFormats, FormatSingleImage)
		}
		if len(feed.Videos) > 0 {
			feed.AdFormats = append(feed.AdFormats, FormatSingleVideo)
		}
	}

	c := &Creative{
		Name:                 in.AdName,
		ObjectStorySpec:      in.storySpec(),
		AssetFeedSpec:        feed,
		DegreesOfFreedomSpec: in.degreesOfFreedom(),
	}
	return &DynamicSpec{newBase(in, c)}, nil
}

// NewCarousel builds one card per asset in input order. Card texts are taken
// by index, falling back to the first variant.
func NewCarousel(in Input, assets []Asset) (*CarouselSpec, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := strategy.Validate(strategy.Carousel, len(assets)); err != nil {
		return nil, err
	}

	cards := make([]ChildAttachment, 0, len(assets))
	for i, a := range assets {
		if err := validateAsset(i, a); err != nil {
			return nil, err
		}
		card := ChildAttachment{
			Name:         textAt(in.Headlines, i),
			Description:  textAt(in.Descriptions, i),
			Link:         in.Link,
			CallToAction: in.callToAction(in.Link),
		}
		if a.Kind == mediaprobe.KindVideo {
			if a.ThumbnailHash == "" && a.ThumbnailURL == "" {
				return nil, strategy.Invalid("mediaFiles", "carousel video %d needs a thumbnail", i+1)
			}
			card.VideoID = a.VideoID
			card.ImageHash = a.ThumbnailHash
			card.Picture = thumbnailURLIfNoHash(a)
		} else {
			card.ImageHash = a.ImageHash
		}
		cards = append(cards, card)
	}

	story := in.storySpec()
	story.LinkData = &LinkData{
		Message:          first(in.Bodies),
		Link:             in.Link,
		Caption:          in.caption(),
		CallToAction:     in.callToAction(in.Link),
		ChildAttachments: cards,
	}
	c := &Creative{
		Name:                 fmt.Sprintf("%s creative", in.AdName),
		ObjectStorySpec:      story,
		DegreesOfFreedomSpec: in.degreesOfFreedom(),
	}
	return &CarouselSpec{newBase(in, c)}, nil
}

// NewPlacement builds a placement-customized feed: every asset and text is
// labelled and one rule per asset targets the placements for its aspect.
func NewPlacement(in Input, assets []Asset) (*PlacementSpec, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := strategy.Validate(strategy.PlacementCustomized, len(assets)); err != nil {
		return nil, err
	}
	aspects := make([]mediaprobe.Aspect, len(assets))
	for i, a := range assets {
		if err := validateAsset(i, a); err != nil {
			return nil, err
		}
		if _, ok := placementTargets[a.Aspect]; !ok {
			return nil, strategy.Invalid("mediaFiles", "asset %d has no aspect category", i+1)
		}
		aspects[i] = a.Aspect
	}
	if err := strategy.ValidateAspects(aspects); err != nil {
		return nil, err
	}

	feed := &AssetFeedSpec{
		Titles:            feedTexts(in.Headlines),
		Bodies:            feedTexts(in.Bodies),
		Descriptions:      feedTexts(in.Descriptions),
		CallToActionTypes: []string{in.CallToAction},
		LinkURLs:          in.linkURLs(),
		AdFormats:         []string{FormatAutomatic},
		OptimizationType:  OptimizationPlacement,
	}

	rules := make([]PlacementRule, len(assets))
	for i, a := range assets {
		rule := newPlacementRule(i, a)
		rules[i] = rule

		label := []AdLabel{{Name: rule.AssetLabel}}
		if a.Kind == mediaprobe.KindVideo {
			feed.Videos = append(feed.Videos, FeedVideo{
				VideoID:       a.VideoID,
				ThumbnailHash: a.ThumbnailHash,
				ThumbnailURL:  thumbnailURLIfNoHash(a),
				AdLabels:      label,
			})
		} else {
			feed.Images = append(feed.Images, FeedImage{Hash: a.ImageHash, AdLabels: label})
		}

		ti := min(i, len(feed.Titles)-1)
		feed.Titles[ti].AdLabels = append(feed.Titles[ti].AdLabels, AdLabel{Name: rule.TitleLabel})
		bi := min(i, len(feed.Bodies)-1)
		feed.Bodies[bi].AdLabels = append(feed.Bodies[bi].AdLabels, AdLabel{Name: rule.BodyLabel})

		feed.AssetCustomizationRules = append(feed.AssetCustomizationRules, rule.wire())
	}

	c := &Creative{
		Name:                 in.AdName,
		ObjectStorySpec:      in.storySpec(),
		AssetFeedSpec:        feed,
		DegreesOfFreedomSpec: in.degreesOfFreedom(),
	}
	return &PlacementSpec{base: newBase(in, c), rules: rules}, nil
}

func thumbnailURLIfNoHash(a Asset) string {
	if a.ThumbnailHash != "" {
		return ""
	}
	return a.ThumbnailURL
}
