// Package storage uploads processed images to an object store and removes
// them again when their prediction is deleted.
package storage

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ObjectStore is implemented by the GCS and S3 backends.
type ObjectStore interface {
	// Upload stores data under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds a globally unique key from a random identifier and the
// client supplied filename.
func ObjectKey(filename string) string {
	return uuid.NewString() + "_" + SanitizeFilename(filename)
}

// SanitizeFilename strips directories and anything outside [A-Za-z0-9._-].
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload.jpg"
	}
	return name
}

func publicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + key
}
