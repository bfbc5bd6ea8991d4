package pipeline

import (
	"context"
	"errors"

	"github.com/fpang/meta-ad-uploader/internal/assets"
	"github.com/fpang/meta-ad-uploader/internal/creative"
	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
	"github.com/fpang/meta-ad-uploader/internal/metaads"
	"github.com/fpang/meta-ad-uploader/internal/progress"
	"github.com/fpang/meta-ad-uploader/internal/settings"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
	"github.com/fpang/meta-ad-uploader/internal/transcode"
)

// Request is one ad-creation job as accepted by the HTTP layer.
type Request struct {
	JobID       string
	UserID      string
	AccessToken string
	AdAccountID string

	Input     creative.Input
	Carousel  bool
	Placement bool

	Assets assets.Inputs
	// Thumbnail is an optional spooled image used for every video asset.
	Thumbnail *assets.LocalFile
}

// Result identifies the created ad.
type Result struct {
	JobID      string            `json:"jobId"`
	AdID       string            `json:"adId"`
	CreativeID string            `json:"creativeId,omitempty"`
	Strategy   strategy.Strategy `json:"strategy"`
}

func (r Request) validate() error {
	switch {
	case r.AccessToken == "":
		return strategy.Invalid("accessToken", "an ad platform access token is required")
	case r.AdAccountID == "":
		return strategy.Invalid("adAccountId", "ad account is required")
	case r.Input.AdSetID == "":
		return strategy.Invalid("adSetId", "ad set is required")
	case r.Assets.Count() == 0:
		return strategy.Invalid("mediaFiles", "at least one media file is required")
	}
	if r.Thumbnail != nil {
		kind, _, err := mediaprobe.Classify(r.Thumbnail.ContentType, r.Thumbnail.Name)
		if err != nil || kind != mediaprobe.KindImage {
			return strategy.Invalid("thumbnail", "thumbnail must be an image")
		}
	}
	return nil
}

// withSettings fills gaps in the request input from the account defaults.
// Values sent on the request always win.
func (r Request) withSettings(acct settings.AccountSettings) creative.Input {
	in := r.Input
	if in.PageID == "" {
		in.PageID = acct.PageID
	}
	if in.InstagramAccountID == "" {
		in.InstagramAccountID = acct.InstagramAccountID
	}
	if in.Enhancements == nil {
		in.Enhancements = acct.Enhancements
	}
	in.URLTags = settings.URLTags(acct.DefaultUTMs, in.URLTags)
	return in
}

// User-facing messages for failures that carry no message of their own.
const (
	msgTranscodeFailed  = "Video processing failed on the ad platform"
	msgTranscodeTimeout = "Timed out waiting for the ad platform to process the video"
	msgCancelled        = "Ad creation was cancelled"
	msgJobTimeout       = "Ad creation took too long and was stopped"
	msgJobActive        = "A job with this id is already running"
	msgGeneric          = "Failed to create ad"
)

// UserMessage is the message recorded on the job and returned to the client
// for err. Platform errors surface error_user_msg when present.
func UserMessage(err error) string {
	var ve *strategy.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, progress.ErrJobActive):
		return msgJobActive
	case errors.Is(err, transcode.ErrFailed):
		return msgTranscodeFailed
	case errors.Is(err, transcode.ErrTimeout):
		return msgTranscodeTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return msgJobTimeout
	case errors.Is(err, context.Canceled):
		return msgCancelled
	}
	if apiErr, ok := metaads.AsAPIError(err); ok {
		return apiErr.UserFacing()
	}
	return msgGeneric
}
