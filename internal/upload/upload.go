// Package upload publishes rendered charts and returns their public URLs.
// Thumbnails go to a Chevereto image host, full-resolution copies to
// S3-compatible object storage.
package upload

import (
	"context"
	"strings"
)

// Uploader publishes a local file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// EnsureHTTPS upgrades http:// URLs to https://, which chat clients require
// for inline images.
func EnsureHTTPS(u string) string {
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "https://" + rest
	}
	return u
}
