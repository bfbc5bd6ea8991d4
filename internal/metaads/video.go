package metaads

import (
	"context"
	"fmt"
	"net/url"
)

// Video processing states reported in status.video_status.
const (
	VideoReady      = "ready"
	VideoProcessing = "processing"
	VideoError      = "error"
	// VideoFailed is not documented but has been observed from older API versions.
	VideoFailed = "failed"
)

type videoStatusResponse struct {
	ID     string `json:"id"`
	Status struct {
		VideoStatus        string `json:"video_status"`
		ProcessingProgress int    `json:"processing_progress"`
	} `json:"status"`
}

// VideoStatus returns the processing status of an uploaded ad video.
func (c *Client) VideoStatus(ctx context.Context, videoID string) (string, error) {
	var resp videoStatusResponse
	if err := c.get(ctx, "/"+url.PathEscape(videoID), url.Values{"fields": {"status"}}, &resp); err != nil {
		return "", fmt.Errorf("video %s status: %w", videoID, err)
	}
	return resp.Status.VideoStatus, nil
}

// Thumbnail is one of the frames the platform generated for a video.
type Thumbnail struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	IsPreferred bool   `json:"is_preferred"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// VideoThumbnails lists the platform-generated thumbnails for a processed video.
func (c *Client) VideoThumbnails(ctx context.Context, videoID string) ([]Thumbnail, error) {
	var resp struct {
		Data []Thumbnail `json:"data"`
	}
	endpoint := fmt.Sprintf("/%s/thumbnails", url.PathEscape(videoID))
	if err := c.get(ctx, endpoint, url.Values{"fields": {"id,uri,is_preferred,width,height"}}, &resp); err != nil {
		return nil, fmt.Errorf("video %s thumbnails: %w", videoID, err)
	}
	return resp.Data, nil
}

// PreferredThumbnail picks the thumbnail flagged as preferred, else the first one.
func PreferredThumbnail(thumbs []Thumbnail) (Thumbnail, bool) {
	for _, t := range thumbs {
		if t.IsPreferred && t.URI != "" {
			return t, true
		}
	}
	for _, t := range thumbs {
		if t.URI != "" {
			return t, true
		}
	}
	return Thumbnail{}, false
}
