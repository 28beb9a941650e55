// Package asin extracts Amazon product identifiers from free-form cell text.
package asin

import (
	"regexp"
	"strings"
)

var (
	productPathRe = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)
	// bounded by anything that is not a Unicode letter, digit or underscore,
	// so a code glued to Japanese text does not count
	standaloneRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])([A-Z0-9]{10})(?:$|[^\p{L}\p{N}_])`)
)

// Extract returns the identifier in text. A /dp/<code> URL path wins over a
// bare 10-character code elsewhere in the text.
func Extract(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if m := productPathRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if m := standaloneRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}
