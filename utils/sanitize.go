package utils

import "github.com/microcosm-cc/bluemonday"

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans user generated HTML (question/answer bodies) to
// prevent XSS while keeping the safe formatting subset.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizeStrict strips all markup; used for plain-text fields such as
// bios, titles and loop descriptions.
func SanitizeStrict(input string) string {
	return strictPolicy.Sanitize(input)
}
