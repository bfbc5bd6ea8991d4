package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/metaads"
	"github.com/fpang/meta-ad-uploader/internal/progress"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
	"github.com/fpang/meta-ad-uploader/internal/transcode"
)

// --- JSON Helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// httpError sends a JSON error response. The clientMsg is returned to the caller.
// Optional internalDetails are logged server-side but never sent to the client.
func httpError(w http.ResponseWriter, status int, clientMsg string, internalDetails ...string) {
	if len(internalDetails) > 0 {
		log.Error().
			Int("status", status).
			Str("clientMsg", clientMsg).
			Strs("internalDetails", internalDetails).
			Msg("HTTP error with internal details")
	}
	respondJSON(w, status, map[string]string{"error": clientMsg})
}

// errorStatus maps a job failure to the response status.
func errorStatus(err error) int {
	var ve *strategy.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, progress.ErrJobActive):
		return http.StatusConflict
	case errors.Is(err, transcode.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, transcode.ErrFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	if apiErr, ok := metaads.AsAPIError(err); ok {
		if apiErr.Transient() {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
