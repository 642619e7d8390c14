package security

import (
	"net/url"
	"strings"
)

// maxDecodeIterations caps the percent-decoding loop. Decoding runs to
// a fixed point so double- and triple-encoded traversal collapse to
// the literal form; the cap keeps pathological inputs bounded.
const maxDecodeIterations = 5

// Normalize canonicalizes a candidate path for pattern matching:
// lowercase, backslashes unified to forward slashes, and percent
// encoding stripped until the string stops changing. It never rejects
// anything itself; undecodable sequences are left as-is.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	for i := 0; i < maxDecodeIterations; i++ {
		s = strings.ReplaceAll(s, "\\", "/")
		decoded, err := url.PathUnescape(s)
		if err != nil || decoded == s {
			break
		}
		s = decoded
	}
	return strings.ReplaceAll(s, "\\", "/")
}

// ContainsTraversal reports whether the normalized string holds a `..`
// path segment. Run Normalize first: encoded variants collapse to the
// literal form, so this single check covers them all.
func ContainsTraversal(normalized string) bool {
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}
