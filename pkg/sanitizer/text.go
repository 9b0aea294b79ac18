package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxTextLength caps free-text fields.
const MaxTextLength = 1000

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Text removes angle brackets and truncates to MaxTextLength runes.
func Text(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, s)
	return LimitLength(strings.TrimSpace(s), MaxTextLength)
}

// LimitLength truncates s to at most maxLength runes.
func LimitLength(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength])
}

// RemoveControlChars removes control characters, keeping newlines and tabs.
func RemoveControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// RemoveExtraWhitespace collapses whitespace runs into one space and trims.
func RemoveExtraWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
