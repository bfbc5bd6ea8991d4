package submit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/creative"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
)

// Platform is the subset of the ad platform client used for submission.
type Platform interface {
	CreateAdCreative(ctx context.Context, accountID string, payload any) (string, error)
	CreateAd(ctx context.Context, accountID string, payload any) (string, error)
}

// Result identifies what was created.
type Result struct {
	AdID       string
	CreativeID string
	Strategy   strategy.Strategy
}

// Submitter creates ads from validated specs.
type Submitter struct {
	platform Platform
	policy   Policy
}

// NewSubmitter creates a Submitter.
func NewSubmitter(platform Platform, policy Policy) *Submitter {
	return &Submitter{platform: platform, policy: policy}
}

// Submit creates the ad described by spec. Specs that need a standalone
// creative are submitted as two dependent calls, each retried on its own.
func (s *Submitter) Submit(ctx context.Context, accountID string, spec creative.Spec) (*Result, error) {
	res := &Result{Strategy: spec.Strategy()}
	logger := log.With().Str("adAccountId", accountID).Str("strategy", string(spec.Strategy())).Logger()

	if spec.CreativeFirst() {
		creativeID, err := Retry(ctx, s.policy, func(ctx context.Context) (string, error) {
			return s.platform.CreateAdCreative(ctx, accountID, spec.Creative())
		})
		if err != nil {
			return nil, fmt.Errorf("create ad creative: %w", err)
		}
		res.CreativeID = creativeID
		logger.Info().Str("creativeId", creativeID).Msg("Ad creative created")
	}

	adID, err := Retry(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.platform.CreateAd(ctx, accountID, spec.Ad(res.CreativeID))
	})
	if err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}
	res.AdID = adID
	logger.Info().Str("adId", adID).Msg("Ad created")
	return res, nil
}
