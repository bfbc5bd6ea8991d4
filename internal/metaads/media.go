package metaads

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/rs/zerolog/log"
)

// Upload is a media body to stream into the ad account library.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Image is an uploaded ad image. Creatives reference it by Hash.
type Image struct {
	Name string `json:"-"`
	Hash string `json:"hash"`
	URL  string `json:"url,omitempty"`
}

type adImagesResponse struct {
	Images map[string]Image `json:"images"`
}

// UploadImage uploads an image to /act_{id}/adimages and returns its hash.
func (c *Client) UploadImage(ctx context.Context, accountID string, up Upload) (*Image, error) {
	log.Debug().Str("name", up.Name).Str("contentType", up.ContentType).Msg("Uploading ad image")

	var resp adImagesResponse
	endpoint := fmt.Sprintf("/%s/adimages", AccountPath(accountID))
	if err := c.postMultipart(ctx, endpoint, nil, "file", up, &resp); err != nil {
		return nil, fmt.Errorf("upload image %s: %w", up.Name, err)
	}

	img, ok := resp.Images[up.Name]
	if !ok {
		// The key is the server-side filename, which may be normalised.
		for name, candidate := range resp.Images {
			img, ok = candidate, true
			img.Name = name
			break
		}
	}
	if !ok || img.Hash == "" {
		return nil, fmt.Errorf("upload image %s: no image hash in response", up.Name)
	}
	if img.Name == "" {
		img.Name = up.Name
	}
	log.Info().Str("name", up.Name).Str("imageHash", img.Hash).Msg("Ad image uploaded")
	return &img, nil
}

// UploadVideo streams a video file to /act_{id}/advideos and returns the video ID.
func (c *Client) UploadVideo(ctx context.Context, accountID string, up Upload) (string, error) {
	log.Debug().Str("name", up.Name).Str("contentType", up.ContentType).Msg("Uploading ad video")

	var resp idResponse
	endpoint := fmt.Sprintf("/%s/advideos", AccountPath(accountID))
	fields := map[string]string{"name": up.Name}
	if err := c.postMultipart(ctx, endpoint, fields, "source", up, &resp); err != nil {
		return "", fmt.Errorf("upload video %s: %w", up.Name, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("upload video %s: no video ID in response", up.Name)
	}
	log.Info().Str("name", up.Name).Str("videoId", resp.ID).Msg("Ad video uploaded")
	return resp.ID, nil
}

// UploadVideoFromURL asks the platform to fetch the video from fileURL
// (typically a presigned object-storage URL) instead of streaming the bytes.
func (c *Client) UploadVideoFromURL(ctx context.Context, accountID, name, fileURL string) (string, error) {
	log.Debug().Str("name", name).Msg("Creating ad video from URL")

	var resp idResponse
	endpoint := fmt.Sprintf("/%s/advideos", AccountPath(accountID))
	payload := map[string]string{"name": name, "file_url": fileURL}
	if err := c.postJSON(ctx, endpoint, payload, &resp); err != nil {
		return "", fmt.Errorf("upload video %s from URL: %w", name, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("upload video %s from URL: no video ID in response", name)
	}
	log.Info().Str("name", name).Str("videoId", resp.ID).Msg("Ad video created from URL")
	return resp.ID, nil
}

// postMultipart streams fields plus one file part without buffering the file.
func (c *Client) postMultipart(ctx context.Context, endpoint string, fields map[string]string, fileField string, up Upload, out any) error {
	pr, pw := io.Pipe()
	// Unblocks the writer goroutine if the request ends before the body is drained.
	defer pr.Close()

	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, fields, fileField, up))
	}()

	return c.do(ctx, http.MethodPost, endpoint, nil, mw.FormDataContentType(), pr, out)
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, fileField string, up Upload) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, quoteEscaper.Replace(up.Name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return fmt.Errorf("copy file body: %w", err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
