package cache

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

// maxKeyLen keeps file names under common filesystem limits
const maxKeyLen = 200

// KeyFor converts a request path to a file-safe key. Distinct paths always
// get distinct keys: the path is percent-escaped as a whole, and paths too
// long for a file name are hashed under a prefix escaping never produces.
func KeyFor(path string) string {
	key := strings.ReplaceAll(url.PathEscape(path), ":", "%3A")
	if key == "" {
		key = "%empty"
	}

	if len(key) > maxKeyLen {
		return fmt.Sprintf("%%sha256-%x.json", sha256.Sum256([]byte(path)))
	}

	return key + ".json"
}
