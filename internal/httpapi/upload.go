package httpapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/jobs"
	"github.com/fpang/meta-ad-uploader/internal/s3util"
)

// GET /api/upload-url?filename=...&contentType=...[&uploadId=...][&size=...]
// Returns a presigned S3 PUT URL so the browser can upload directly to the
// media bucket, plus the object key to send back with the create-ad request.
//
//   - filename is sanitized and validated against a safe character set
//   - contentType must be in the allowed media type list and is signed
//   - size, when given, is checked against the platform limits
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("Handler entry: handleUploadURL")

	if s.deps.Store == nil {
		httpError(w, http.StatusServiceUnavailable, "direct uploads are not configured")
		return
	}
	if _, err := s.deps.Auth.Authenticate(r); err != nil {
		httpError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	q := r.URL.Query()
	filename := q.Get("filename")
	contentType := q.Get("contentType")
	uploadID := q.Get("uploadId")

	if filename == "" || contentType == "" {
		httpError(w, http.StatusBadRequest, "filename and contentType are required")
		return
	}
	if !allowedContentTypes[contentType] {
		log.Warn().Str("contentType", contentType).Msg("Unsupported content type")
		httpError(w, http.StatusBadRequest, fmt.Sprintf("unsupported content type: %s", contentType))
		return
	}
	if raw := q.Get("size"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || size < 0 {
			httpError(w, http.StatusBadRequest, "size must be a non-negative integer")
			return
		}
		if err := validateUploadSize(filepath.Base(filename), contentType, size); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if uploadID == "" {
		uploadID = jobs.GenerateID("")
	}
	key, err := s3util.UploadKey(uploadID, filename)
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Upload key validation failed")
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	uploadURL, err := s.deps.Store.PresignPut(r.Context(), key, contentType, s.opts.PresignExpiry)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to generate upload URL", err.Error(), key)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"uploadUrl": uploadURL,
		"key":       key,
		"uploadId":  uploadID,
	})
}
