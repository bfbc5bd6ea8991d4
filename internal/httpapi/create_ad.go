package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/assets"
	"github.com/fpang/meta-ad-uploader/internal/creative"
	"github.com/fpang/meta-ad-uploader/internal/jobs"
	"github.com/fpang/meta-ad-uploader/internal/jsonutil"
	"github.com/fpang/meta-ad-uploader/internal/pipeline"
	"github.com/fpang/meta-ad-uploader/internal/progress"
	"github.com/fpang/meta-ad-uploader/internal/s3util"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
)

// maxFieldBytes bounds a single non-file form field.
const maxFieldBytes = 1 << 20

// objectURLExpiry is how long the ad platform may take to fetch an uploaded
// object after the job starts.
const objectURLExpiry = time.Hour

// Form file fields. imageFile is the single-file field of older clients.
const (
	fieldMediaFiles = "mediaFiles"
	fieldImageFile  = "imageFile"
	fieldThumbnail  = "thumbnail"
)

// createAdForm is a parsed create-ad request with its files spooled to disk.
type createAdForm struct {
	values    map[string]string
	files     []assets.LocalFile
	thumbnail *assets.LocalFile
}

// remove deletes the spooled files. Used when the request is rejected
// before a job takes ownership of them.
func (f *createAdForm) remove() {
	paths := make([]string, 0, len(f.files)+1)
	for _, lf := range f.files {
		paths = append(paths, lf.Path)
	}
	if f.thumbnail != nil {
		paths = append(paths, f.thumbnail.Path)
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", p).Msg("Failed to remove spooled upload")
		}
	}
}

// POST /api/create-ad (multipart/form-data)
// Runs the ad-creation job to completion and returns the created ad. Progress
// is observable on /api/progress/{jobId} while the request is in flight.
func (s *Server) handleCreateAd(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Auth.Authenticate(r)
	if err != nil {
		httpError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	form, err := s.readForm(r)
	if err != nil {
		form.remove()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request exceeds %d MB", s.opts.MaxUploadBytes>>20))
			return
		}
		s.reject(w, form.values["jobId"], err)
		return
	}

	req, err := s.buildRequest(r.Context(), id, form)
	if err != nil {
		form.remove()
		s.reject(w, form.values["jobId"], err)
		return
	}

	log.Info().
		Str("jobId", req.JobID).
		Str("userId", req.UserID).
		Int("assets", req.Assets.Count()).
		Msg("Create ad request accepted")

	res, err := s.deps.Runner.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, progress.ErrJobActive) {
			// The active job owns its inputs; only this request's spooled files are ours.
			form.remove()
		}
		httpError(w, errorStatus(err), pipeline.UserMessage(err))
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// reject answers a request that failed before its job started. When the
// client chose a job id, the failure is also recorded on the job so that an
// already-open progress stream sees the same message.
func (s *Server) reject(w http.ResponseWriter, jobID string, err error) {
	status, msg := http.StatusBadRequest, pipeline.UserMessage(err)
	var ve *strategy.ValidationError
	if !errors.As(err, &ve) {
		status, msg = http.StatusInternalServerError, "Failed to process upload"
	}
	if resolved, idErr := jobs.Resolve(jobID); jobID != "" && idErr == nil {
		if _, startErr := s.deps.Registry.StartJob(resolved, 0, progress.DefaultStartMessage); startErr == nil {
			s.deps.Registry.ErrorJob(resolved, msg)
		}
	}
	log.Warn().Err(err).Str("jobId", jobID).Int("status", status).Msg("Create ad request rejected")
	httpError(w, status, msg)
}

// readForm streams the multipart body, spooling media files to the upload
// directory. On error the returned form still lists what was spooled.
func (s *Server) readForm(r *http.Request) (*createAdForm, error) {
	form := &createAdForm{values: map[string]string{}}
	mr, err := r.MultipartReader()
	if err != nil {
		return form, strategy.Invalid("body", "expected a multipart/form-data body: %v", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, err
		}
		if err != nil {
			return form, strategy.Invalid("body", "malformed multipart body: %v", err)
		}

		name := part.FormName()
		if part.FileName() == "" {
			b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			part.Close()
			if err != nil {
				return form, fmt.Errorf("read field %s: %w", name, err)
			}
			if len(b) > maxFieldBytes {
				return form, strategy.Invalid(name, "field %s is too large", name)
			}
			form.values[name] = string(b)
			continue
		}

		switch name {
		case fieldMediaFiles, fieldImageFile:
			lf, err := s.spool(part)
			if err != nil {
				return form, err
			}
			form.files = append(form.files, lf)
		case fieldThumbnail:
			if form.thumbnail != nil {
				part.Close()
				return form, strategy.Invalid(fieldThumbnail, "only one thumbnail is allowed")
			}
			lf, err := s.spool(part)
			if err != nil {
				return form, err
			}
			form.thumbnail = &lf
		default:
			log.Debug().Str("field", name).Msg("Ignoring unexpected file field")
			_, err := io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return form, fmt.Errorf("read field %s: %w", name, err)
			}
		}
	}
}

// spool copies one uploaded file to a temp file in the upload directory.
func (s *Server) spool(part *multipart.Part) (assets.LocalFile, error) {
	defer part.Close()
	name := filepath.Base(part.FileName())
	contentType := part.Header.Get("Content-Type")

	tmp, err := os.CreateTemp(s.opts.UploadDir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return assets.LocalFile{}, fmt.Errorf("create spool file: %w", err)
	}
	n, err := io.Copy(tmp, part)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err == nil {
		err = validateUploadSize(name, contentType, n)
		if err != nil {
			err = strategy.Invalid(fieldMediaFiles, "%v", err)
		}
	}
	if err != nil {
		os.Remove(tmp.Name())
		return assets.LocalFile{}, err
	}

	log.Debug().Str("name", name).Str("contentType", contentType).Int64("bytes", n).Msg("Spooled upload")
	return assets.LocalFile{Path: tmp.Name(), Name: name, ContentType: contentType, Size: n}, nil
}

// buildRequest maps the form onto a pipeline request. Text variants accept a
// JSON list or a single plain value (headlines or headline, and so on).
func (s *Server) buildRequest(ctx context.Context, id Identity, form *createAdForm) (pipeline.Request, error) {
	v := form.values

	jobID, err := jobs.Resolve(v["jobId"])
	if err != nil {
		return pipeline.Request{}, strategy.Invalid("jobId", "%v", err)
	}

	in := creative.Input{
		AdName:             v["adName"],
		AdSetID:            v["adSetId"],
		PageID:             v["pageId"],
		InstagramAccountID: v["instagramAccountId"],
		Headlines:          jsonutil.StringList(v["headlines"], v["headline"]),
		Bodies:             jsonutil.StringList(v["messages"], v["message"]),
		Descriptions:       jsonutil.StringList(v["descriptions"], v["description"]),
		CallToAction:       v["cta"],
		Link:               v["link"],
		DisplayLink:        v["displayLink"],
		URLTags:            v["urlTags"],
		Paused:             formBool(v["launchPaused"]),
	}
	if v["shopDestination"] != "" || v["shopDestinationType"] != "" {
		in.Shop = &creative.ShopDestination{
			Type: creative.ShopDestinationType(v["shopDestinationType"]),
			ID:   v["shopDestination"],
		}
	}
	if raw := v["enhancements"]; raw != "" {
		if in.Enhancements, err = jsonutil.ParseJSON[map[string]bool](raw); err != nil {
			return pipeline.Request{}, strategy.Invalid("enhancements", "enhancements must be a JSON object of flags")
		}
	}

	var objects []assets.ObjectRef
	for _, field := range []string{"s3VideoUrls", "s3Urls"} {
		refs, err := jsonutil.ParseJSON[[]assets.ObjectRef](v[field])
		if err != nil {
			return pipeline.Request{}, strategy.Invalid(field, "%s must be a JSON list of uploaded objects", field)
		}
		objects = append(objects, refs...)
	}
	if objects, err = s.prepareObjects(ctx, objects); err != nil {
		return pipeline.Request{}, err
	}

	drive, err := jsonutil.ParseJSON[[]assets.DriveRef](v["driveFiles"])
	if err != nil {
		return pipeline.Request{}, strategy.Invalid("driveFiles", "driveFiles must be a JSON list of Drive files")
	}
	order, err := jsonutil.ParseJSON[[]assets.OrderEntry](v["assetOrder"])
	if err != nil {
		return pipeline.Request{}, strategy.Invalid("assetOrder", "assetOrder must be a JSON list")
	}

	return pipeline.Request{
		JobID:       jobID,
		UserID:      id.UserID,
		AccessToken: id.AccessToken,
		AdAccountID: v["adAccountId"],
		Input:       in,
		Carousel:    formBool(v["isCarouselAd"]),
		Placement:   formBool(v["enablePlacementCustomization"]),
		Assets: assets.Inputs{
			Files:   form.files,
			Objects: objects,
			Drive:   drive,
			Order:   order,
		},
		Thumbnail: form.thumbnail,
	}, nil
}

// prepareObjects resolves browser uploads to URLs the ad platform can fetch.
// An object sent by key gets a presigned GET URL; one sent by URL keeps it,
// and its key is recovered when it lives in the media bucket. Only keys under
// the upload prefix are kept, since they are deleted when the job ends.
func (s *Server) prepareObjects(ctx context.Context, refs []assets.ObjectRef) ([]assets.ObjectRef, error) {
	for i := range refs {
		ref := &refs[i]
		switch {
		case ref.Key != "":
			if s.deps.Store == nil {
				return nil, strategy.Invalid("s3Urls", "direct uploads are not configured")
			}
			if err := s3util.ValidateUploadKey(ref.Key); err != nil {
				return nil, strategy.Invalid("s3Urls", "%v", err)
			}
			u, err := s.deps.Store.PresignGet(ctx, ref.Key, objectURLExpiry)
			if err != nil {
				return nil, fmt.Errorf("presign %s: %w", ref.Key, err)
			}
			ref.URL = u
		case ref.URL != "":
			if s.deps.Store == nil {
				continue
			}
			if key, ok := s.deps.Store.KeyFromURL(ref.URL); ok && s3util.ValidateUploadKey(key) == nil {
				ref.Key = key
			}
		default:
			return nil, strategy.Invalid("s3Urls", "uploaded object %d has neither url nor key", i+1)
		}
	}
	return refs, nil
}

func formBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
