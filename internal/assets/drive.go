package assets

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveDownloader streams a Drive file into w.
type DriveDownloader interface {
	Download(ctx context.Context, ref DriveRef, w io.Writer) (int64, error)
}

// DriveClient downloads files with the caller's OAuth access token.
type DriveClient struct {
	opts []option.ClientOption
}

// NewDriveClient creates a DriveClient. opts are appended after the per-call
// token source (endpoint overrides, custom HTTP client).
func NewDriveClient(opts ...option.ClientOption) *DriveClient {
	return &DriveClient{opts: opts}
}

// Download implements DriveDownloader.
func (c *DriveClient) Download(ctx context.Context, ref DriveRef, w io.Writer) (int64, error) {
	if ref.ID == "" {
		return 0, fmt.Errorf("drive file id is required")
	}
	if ref.AccessToken == "" {
		return 0, fmt.Errorf("drive file %s: access token is required", ref.ID)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: ref.AccessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return 0, fmt.Errorf("create drive service: %w", err)
	}

	resp, err := svc.Files.Get(ref.ID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return 0, fmt.Errorf("download drive file %s: %w", ref.ID, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read drive file %s: %w", ref.ID, err)
	}
	return n, nil
}
