// Package rescache implements the central mesh/texture/shader-program
// cache: thread-safe, deduplicated by a normalized absolute resource id,
// with async loads coalesced so concurrent requests for the same path
// share one load instead of racing.
package rescache

import (
	"path/filepath"
)

// normalize canonicalizes path into the cache key: an absolute,
// platform-clean path with duplicate separators and "." / ".."
// elements collapsed.
func normalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
