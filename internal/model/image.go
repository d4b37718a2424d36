package model

import "strings"

var absoluteImagePrefixes = []string{"http://", "https://", "data:", "//"}

// IsAbsoluteImageRef reports whether ref can be used verbatim. Anything else is
// a filename the presentation layer resolves against its image base URL.
func IsAbsoluteImageRef(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	for _, prefix := range absoluteImagePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
