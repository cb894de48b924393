// Package textclean strips identifying noise from channel captions and file names.
package textclean

import (
	"regexp"
	"strings"
)

var (
	handlePattern = regexp.MustCompile(`@\w+`)
	hexIDPattern  = regexp.MustCompile(`\b[a-fA-F0-9]{20,}\b`)
)

// Clean removes @handles and bare hexadecimal ids of 20 or more characters,
// then trims surrounding whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = handlePattern.ReplaceAllString(text, "")
	text = hexIDPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
