package mediaprobe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxHeaderBytes bounds how much of a remote image is fetched to read its
// header and EXIF block.
const maxHeaderBytes = 512 << 10

// Source identifies media to measure: a local Path or a fetchable URL.
type Source struct {
	Kind Kind
	Path string
	URL  string
}

// Prober measures local and remote media.
type Prober struct {
	httpClient *http.Client
}

// NewProber creates a Prober. A nil client uses a 30s-timeout default.
func NewProber(hc *http.Client) *Prober {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Prober{httpClient: hc}
}

// Dimensions returns the display dimensions of src.
func (p *Prober) Dimensions(ctx context.Context, src Source) (Dimensions, error) {
	switch {
	case src.Kind == KindVideo && src.Path != "":
		return VideoDimensions(ctx, src.Path)
	case src.Kind == KindVideo && src.URL != "":
		return VideoDimensions(ctx, src.URL)
	case src.Path != "":
		return ImageDimensions(src.Path)
	case src.URL != "":
		return p.remoteImageDimensions(ctx, src.URL)
	default:
		return Dimensions{}, fmt.Errorf("media source has neither path nor URL")
	}
}

func (p *Prober) remoteImageDimensions(ctx context.Context, url string) (Dimensions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Dimensions{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", maxHeaderBytes-1))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Dimensions{}, fmt.Errorf("fetch image header: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return Dimensions{}, fmt.Errorf("fetch image header: unexpected status %d", resp.StatusCode)
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, maxHeaderBytes))
	if err != nil {
		return Dimensions{}, fmt.Errorf("read image header: %w", err)
	}
	return imageDimensions(bytes.NewReader(head))
}
