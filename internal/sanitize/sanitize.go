// Package sanitize cleans free-text run labels before they are stored.
// Labels are echoed back to MCP clients and rendered in reports, so markup
// and control characters are removed while the readable text is kept.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLabelLength is the maximum label length in characters.
const MaxLabelLength = 200

// MaxRunIDLength is the maximum length of a run ID.
const MaxRunIDLength = 64

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reMarkdownHeading matches markdown heading markers at the start of the label.
	reMarkdownHeading = regexp.MustCompile(`^#{1,6}\s+`)

	// reBackticks matches runs of two or more backticks.
	reBackticks = regexp.MustCompile("`{2,}")

	// reSpaces matches any run of whitespace.
	reSpaces = regexp.MustCompile(`\s+`)
)

// Label returns a single-line, markup-free version of input.
//
// The pipeline runs in this order:
//  1. Replace control characters (newlines and tabs included) with spaces
//  2. Strip XML/HTML tags
//  3. Drop a leading markdown heading marker
//  4. Collapse backtick runs to a single backtick
//  5. Collapse whitespace and trim
//  6. Truncate to MaxLabelLength characters
func Label(input string) string {
	if input == "" {
		return ""
	}

	s := strings.ToValidUTF8(input, "")
	s = replaceControlChars(s)
	s = reXMLTag.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = reMarkdownHeading.ReplaceAllString(s, "")
	s = reBackticks.ReplaceAllString(s, "`")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))

	if utf8.RuneCountInString(s) > MaxLabelLength {
		s = strings.TrimSpace(string([]rune(s)[:MaxLabelLength]))
	}

	return s
}

// ValidRunID reports whether id is safe to store as a run ID: 1 to
// MaxRunIDLength characters from [a-zA-Z0-9-_].
func ValidRunID(id string) bool {
	if id == "" || len(id) > MaxRunIDLength {
		return false
	}
	for _, r := range id {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// replaceControlChars turns every control character into a space.
func replaceControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
