package metaads

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
)

// AdSet holds the ad set fields that influence creative construction.
type AdSet struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IsDynamicCreative bool   `json:"is_dynamic_creative"`
	DestinationType   string `json:"destination_type,omitempty"`
}

// AdSet fetches the ad set, including its is_dynamic_creative flag.
func (c *Client) AdSet(ctx context.Context, adSetID string) (*AdSet, error) {
	var adSet AdSet
	query := url.Values{"fields": {"id,name,is_dynamic_creative,destination_type"}}
	if err := c.get(ctx, "/"+url.PathEscape(adSetID), query, &adSet); err != nil {
		return nil, fmt.Errorf("ad set %s: %w", adSetID, err)
	}
	if adSet.ID == "" {
		adSet.ID = adSetID
	}
	log.Debug().Str("adSetId", adSetID).Bool("isDynamicCreative", adSet.IsDynamicCreative).Msg("Ad set loaded")
	return &adSet, nil
}

// CreateAdCreative posts a creative to /act_{id}/adcreatives and returns its ID.
func (c *Client) CreateAdCreative(ctx context.Context, accountID string, payload any) (string, error) {
	var resp idResponse
	endpoint := fmt.Sprintf("/%s/adcreatives", AccountPath(accountID))
	if err := c.postJSON(ctx, endpoint, payload, &resp); err != nil {
		return "", fmt.Errorf("create ad creative: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create ad creative: no ID returned")
	}
	log.Info().Str("creativeId", resp.ID).Msg("Ad creative created")
	return resp.ID, nil
}

// CreateAd posts an ad to /act_{id}/ads and returns its ID.
func (c *Client) CreateAd(ctx context.Context, accountID string, payload any) (string, error) {
	var resp idResponse
	endpoint := fmt.Sprintf("/%s/ads", AccountPath(accountID))
	if err := c.postJSON(ctx, endpoint, payload, &resp); err != nil {
		return "", fmt.Errorf("create ad: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create ad: no ID returned")
	}
	log.Info().Str("adId", resp.ID).Msg("Ad created")
	return resp.ID, nil
}
