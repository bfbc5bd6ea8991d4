package creative

// Wire types for the Marketing API ad and ad creative objects. Only the
// fields this service sends are modelled.

// Ad is the body of POST /act_{id}/ads.
type Ad struct {
	Name     string    `json:"name"`
	AdSetID  string    `json:"adset_id"`
	Creative *Creative `json:"creative"`
	Status   string    `json:"status"`
}

// Creative is either an inline creative or a reference by CreativeID.
type Creative struct {
	CreativeID           string                `json:"creative_id,omitempty"`
	Name                 string                `json:"name,omitempty"`
	ObjectStorySpec      *ObjectStorySpec      `json:"object_story_spec,omitempty"`
	AssetFeedSpec        *AssetFeedSpec        `json:"asset_feed_spec,omitempty"`
	DegreesOfFreedomSpec *DegreesOfFreedomSpec `json:"degrees_of_freedom_spec,omitempty"`
	URLTags              string                `json:"url_tags,omitempty"`
}

type ObjectStorySpec struct {
	PageID          string     `json:"page_id"`
	InstagramUserID string     `json:"instagram_user_id,omitempty"`
	LinkData        *LinkData  `json:"link_data,omitempty"`
	VideoData       *VideoData `json:"video_data,omitempty"`
}

type CallToAction struct {
	Type  string            `json:"type"`
	Value CallToActionValue `json:"value"`
}

type CallToActionValue struct {
	Link        string `json:"link,omitempty"`
	LinkCaption string `json:"link_caption,omitempty"`
}

type LinkData struct {
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	Message          string            `json:"message,omitempty"`
	Link             string            `json:"link"`
	Caption          string            `json:"caption,omitempty"`
	ImageHash        string            `json:"image_hash,omitempty"`
	CallToAction     *CallToAction     `json:"call_to_action,omitempty"`
	ChildAttachments []ChildAttachment `json:"child_attachments,omitempty"`
}

// ChildAttachment is one carousel card.
type ChildAttachment struct {
	Name         string        `json:"name,omitempty"`
	Description  string        `json:"description,omitempty"`
	Link         string        `json:"link"`
	ImageHash    string        `json:"image_hash,omitempty"`
	VideoID      string        `json:"video_id,omitempty"`
	Picture      string        `json:"picture,omitempty"`
	CallToAction *CallToAction `json:"call_to_action,omitempty"`
}

type VideoData struct {
	VideoID         string        `json:"video_id"`
	Title           string        `json:"title,omitempty"`
	Message         string        `json:"message,omitempty"`
	LinkDescription string        `json:"link_description,omitempty"`
	ImageHash       string        `json:"image_hash,omitempty"`
	ImageURL        string        `json:"image_url,omitempty"`
	CallToAction    *CallToAction `json:"call_to_action,omitempty"`
}

type AdLabel struct {
	Name string `json:"name"`
}

type FeedImage struct {
	Hash     string    `json:"hash"`
	AdLabels []AdLabel `json:"adlabels,omitempty"`
}

type FeedVideo struct {
	VideoID       string    `json:"video_id"`
	ThumbnailHash string    `json:"thumbnail_hash,omitempty"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	AdLabels      []AdLabel `json:"adlabels,omitempty"`
}

type FeedText struct {
	Text     string    `json:"text"`
	AdLabels []AdLabel `json:"adlabels,omitempty"`
}

type FeedLink struct {
	WebsiteURL string `json:"website_url"`
	DisplayURL string `json:"display_url,omitempty"`
}

// PlacementTargeting restricts a customization rule to platforms and positions.
type PlacementTargeting struct {
	PublisherPlatforms       []string `json:"publisher_platforms"`
	FacebookPositions        []string `json:"facebook_positions,omitempty"`
	InstagramPositions       []string `json:"instagram_positions,omitempty"`
	AudienceNetworkPositions []string `json:"audience_network_positions,omitempty"`
}

type CustomizationRule struct {
	CustomizationSpec PlacementTargeting `json:"customization_spec"`
	ImageLabel        *AdLabel           `json:"image_label,omitempty"`
	VideoLabel        *AdLabel           `json:"video_label,omitempty"`
	BodyLabel         *AdLabel           `json:"body_label,omitempty"`
	TitleLabel        *AdLabel           `json:"title_label,omitempty"`
	Priority          int                `json:"priority"`
}

type OnsiteDestination struct {
	StorefrontShopID           string `json:"storefront_shop_id,omitempty"`
	ShopCollectionProductSetID string `json:"shop_collection_product_set_id,omitempty"`
	DetailsPageProductID       string `json:"details_page_product_id,omitempty"`
}

type AssetFeedSpec struct {
	Images                  []FeedImage         `json:"images,omitempty"`
	Videos                  []FeedVideo         `json:"videos,omitempty"`
	Titles                  []FeedText          `json:"titles,omitempty"`
	Bodies                  []FeedText          `json:"bodies,omitempty"`
	Descriptions            []FeedText          `json:"descriptions,omitempty"`
	LinkURLs                []FeedLink          `json:"link_urls,omitempty"`
	CallToActionTypes       []string            `json:"call_to_action_types,omitempty"`
	AdFormats               []string            `json:"ad_formats,omitempty"`
	OptimizationType        string              `json:"optimization_type,omitempty"`
	AssetCustomizationRules []CustomizationRule `json:"asset_customization_rules,omitempty"`
	OnsiteDestinations      []OnsiteDestination `json:"onsite_destinations,omitempty"`
}

type FeatureEnrollment struct {
	EnrollStatus string `json:"enroll_status"`
}

type DegreesOfFreedomSpec struct {
	CreativeFeaturesSpec map[string]FeatureEnrollment `json:"creative_features_spec"`
}

// Enumerations used in payloads.
const (
	StatusActive = "ACTIVE"
	StatusPaused = "PAUSED"

	OptIn  = "OPT_IN"
	OptOut = "OPT_OUT"

	FormatSingleImage = "SINGLE_IMAGE"
	FormatSingleVideo = "SINGLE_VIDEO"
	FormatCarousel    = "CAROUSEL"
	FormatAutomatic   = "AUTOMATIC_FORMAT"

	OptimizationDegreesOfFreedom = "DEGREES_OF_FREEDOM"
	OptimizationPlacement        = "PLACEMENT"

	StandardEnhancements = "standard_enhancements"
)
