package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKeepsFormattingStripsScripts(t *testing.T) {
	out := Sanitize(`<p>hello <b>world</b></p><script>alert(1)</script>`)
	assert.Contains(t, out, "<b>world</b>")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "alert(1)")
}

func TestSanitizeStrictStripsAllMarkup(t *testing.T) {
	out := SanitizeStrict(`<b>bold</b> title<img src=x onerror=alert(1)>`)
	assert.Equal(t, "bold title", out)
}
