// Package jobs holds helpers for ad-creation job identifiers.
package jobs

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Prefix is prepended to server-generated job IDs.
const Prefix = "ad-"

// clientIDRegex bounds client-supplied IDs. Browsers typically send
// "<epoch-ms>-<random>" so digits, letters, dashes and underscores are allowed.
var clientIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// GenerateID creates a new random job ID with the given prefix.
func GenerateID(prefix string) string {
	return prefix + uuid.NewString()
}

// Resolve returns the client-supplied ID when present, otherwise a fresh one.
func Resolve(clientID string) (string, error) {
	if clientID == "" {
		return GenerateID(Prefix), nil
	}
	if !clientIDRegex.MatchString(clientID) {
		return "", fmt.Errorf("invalid jobId: only letters, digits, '-' and '_' allowed (max 128)")
	}
	return clientID, nil
}
