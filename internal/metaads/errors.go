package metaads

import (
	"errors"
	"fmt"
)

// CodeServiceUnavailable is the Graph API "temporary issue" code. Calls that
// fail with it are safe to retry even when is_transient is not set.
const CodeServiceUnavailable = 2

// APIError is the Graph API error envelope ({"error": {...}}).
type APIError struct {
	Message     string `json:"message"`
	Type        string `json:"type"`
	Code        int    `json:"code"`
	Subcode     int    `json:"error_subcode,omitempty"`
	IsTransient bool   `json:"is_transient,omitempty"`
	UserTitle   string `json:"error_user_title,omitempty"`
	UserMessage string `json:"error_user_msg,omitempty"`
	FBTraceID   string `json:"fbtrace_id,omitempty"`

	// HTTPStatus is the response status the error arrived with.
	HTTPStatus int `json:"-"`
}

func (e *APIError) Error() string {
	if e.Subcode != 0 {
		return fmt.Sprintf("Meta API error: %s (type: %s, code: %d, subcode: %d)", e.Message, e.Type, e.Code, e.Subcode)
	}
	return fmt.Sprintf("Meta API error: %s (type: %s, code: %d)", e.Message, e.Type, e.Code)
}

// Transient reports whether the platform marked the failure as temporary.
func (e *APIError) Transient() bool {
	return e.IsTransient || e.Code == CodeServiceUnavailable
}

// UserFacing returns the message intended for end users, falling back to the
// developer message when the platform did not supply one.
func (e *APIError) UserFacing() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// IsTransient reports whether err wraps a transient platform error.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient()
}

// AsAPIError unwraps err to a platform error, if there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
