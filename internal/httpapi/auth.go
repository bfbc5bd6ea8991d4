package httpapi

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned by an Authenticator when the request
// carries no usable identity.
var ErrUnauthenticated = errors.New("not authenticated")

// Identity is the caller of a request.
type Identity struct {
	UserID string
	// AccessToken is the caller's ad platform token.
	AccessToken string
}

// Authenticator resolves the caller of a request. Session handling and the
// OAuth exchange with the ad platform live in front of this service.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// Header names read by HeaderAuthenticator.
const (
	HeaderUserID      = "X-User-Id"
	HeaderAccessToken = "X-Meta-Access-Token"
)

// HeaderAuthenticator reads the identity set by an upstream proxy: the user
// id from X-User-Id and the token from X-Meta-Access-Token or a bearer
// Authorization header.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	token := strings.TrimSpace(r.Header.Get(HeaderAccessToken))
	if token == "" {
		if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			token = strings.TrimSpace(v)
		}
	}
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		userID = "anonymous"
	}
	return Identity{UserID: userID, AccessToken: token}, nil
}
