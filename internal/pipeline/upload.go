package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/fpang/meta-ad-uploader/internal/assets"
	"github.com/fpang/meta-ad-uploader/internal/creative"
	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
	"github.com/fpang/meta-ad-uploader/internal/metaads"
	"github.com/fpang/meta-ad-uploader/internal/progress"
	"github.com/fpang/meta-ad-uploader/internal/transcode"
)

// uploadAll uploads every asset in order and stops at the first failure.
func (r *Runner) uploadAll(ctx context.Context, j *job, descs []assets.Descriptor, aspects []mediaprobe.Aspect) ([]creative.Asset, error) {
	out := make([]creative.Asset, 0, len(descs))
	for i, d := range descs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pct := pctUploadFrom + (pctUploadTo-pctUploadFrom)*i/len(descs)

		a := creative.Asset{Kind: d.Kind, Name: d.Name}
		if aspects != nil {
			a.Aspect = aspects[i]
		}

		switch d.Kind {
		case mediaprobe.KindVideo:
			step := progress.StepVideoUpload
			if !d.Local() {
				step = progress.StepS3Video
			}
			r.report(j, pct, progress.Message(step, d.Name))
			id, err := r.uploadVideo(ctx, j, d)
			if err != nil {
				return nil, err
			}
			a.VideoID = id
			j.videos++
		default:
			r.report(j, pct, progress.Message(progress.StepImageUpload, d.Name))
			img, err := r.uploadImage(ctx, j, d)
			if err != nil {
				return nil, err
			}
			a.ImageHash = img.Hash
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Runner) uploadImage(ctx context.Context, j *job, d assets.Descriptor) (*metaads.Image, error) {
	local, err := r.deps.Resolver.Localize(ctx, d, j.cleanup)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(local.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	defer f.Close()
	return j.platform.UploadImage(ctx, j.req.AdAccountID, metaads.Upload{Name: d.Name, ContentType: d.MIME, Body: f})
}

// uploadVideo streams local files and hands remote URLs to the platform to
// fetch itself.
func (r *Runner) uploadVideo(ctx context.Context, j *job, d assets.Descriptor) (string, error) {
	if !d.Local() {
		return j.platform.UploadVideoFromURL(ctx, j.req.AdAccountID, d.Name, d.URL)
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", d.Name, err)
	}
	defer f.Close()
	return j.platform.UploadVideo(ctx, j.req.AdAccountID, metaads.Upload{Name: d.Name, ContentType: d.MIME, Body: f})
}

// prepareVideos waits for every uploaded video to finish processing, then
// attaches a thumbnail: the uploaded thumbnail image when the request has
// one, otherwise the platform's preferred generated thumbnail.
func (r *Runner) prepareVideos(ctx context.Context, j *job, uploaded []creative.Asset) error {
	var videos []int
	for i, a := range uploaded {
		if a.Kind == mediaprobe.KindVideo {
			videos = append(videos, i)
		}
	}
	if len(videos) == 0 {
		return nil
	}

	var thumbHash string
	if t := j.req.Thumbnail; t != nil {
		r.report(j, pctUploadTo, progress.Message(progress.StepThumbnail, t.Name))
		_, mt, err := mediaprobe.Classify(t.ContentType, t.Name)
		if err != nil {
			return fmt.Errorf("thumbnail: %w", err)
		}
		img, err := r.uploadImage(ctx, j, assets.Descriptor{
			Source: assets.SourceLocalFile,
			Kind:   mediaprobe.KindImage,
			MIME:   mt,
			Name:   t.Name,
			Path:   t.Path,
		})
		if err != nil {
			return fmt.Errorf("upload thumbnail: %w", err)
		}
		thumbHash = img.Hash
	}

	ids := make([]string, len(videos))
	for n, i := range videos {
		ids[n] = uploaded[i].VideoID
	}
	waiter := transcode.NewWaiter(j.platform, r.cfg.TranscodeInterval, r.cfg.TranscodeTimeout)
	err := waiter.WaitAll(ctx, ids, func(n int) {
		pct := pctWaitFrom + (pctWaitTo-pctWaitFrom)*n/len(videos)
		r.report(j, pct, progress.Message(progress.StepTranscode, uploaded[videos[n]].Name))
	})
	if err != nil {
		return err
	}

	for _, i := range videos {
		a := &uploaded[i]
		if thumbHash != "" {
			a.ThumbnailHash = thumbHash
			continue
		}
		r.report(j, pctThumbnails, progress.Message(progress.StepThumbnail, a.Name))
		thumbs, err := j.platform.VideoThumbnails(ctx, a.VideoID)
		if err != nil {
			return fmt.Errorf("video %s thumbnails: %w", a.Name, err)
		}
		preferred, ok := metaads.PreferredThumbnail(thumbs)
		if !ok || preferred.URI == "" {
			return fmt.Errorf("video %s: the ad platform generated no thumbnail; upload one", a.Name)
		}
		a.ThumbnailURL = preferred.URI
	}
	return nil
}
