package s3util

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// UploadPrefix is the key prefix for browser uploads awaiting an ad job.
const UploadPrefix = "uploads"

// safeFilenameRegex allows alphanumeric, dots, hyphens, underscores, spaces, and parentheses.
var safeFilenameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._ ()-]{0,254}$`)

// ValidateFilename rejects path components and unusual characters.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("filename contains invalid characters")
	}
	if !safeFilenameRegex.MatchString(name) {
		return fmt.Errorf("filename contains invalid characters; only alphanumeric, dots, hyphens, underscores, spaces, and parentheses allowed")
	}
	return nil
}

// UploadKey builds the key for a browser upload: uploads/<uploadID>/<filename>.
// Directory components in filename are stripped before validation.
func UploadKey(uploadID, filename string) (string, error) {
	if uploadID == "" || strings.ContainsAny(uploadID, "/\\") || strings.Contains(uploadID, "..") {
		return "", fmt.Errorf("invalid upload id")
	}
	filename = filepath.Base(filename)
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return UploadPrefix + "/" + uploadID + "/" + filename, nil
}

// ValidateUploadKey checks that key was produced by UploadKey. Only such keys
// may be deleted on behalf of a client.
func ValidateUploadKey(key string) error {
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid key")
	}
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != UploadPrefix || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("invalid key format: expected %s/<id>/<filename>", UploadPrefix)
	}
	return nil
}
