package sanitizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail trims, lower-cases and NFC-normalizes an address.
// It does not repair malformed input; validation rejects that.
func NormalizeEmail(email string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(email)))
}

// NormalizePhone keeps digits and a single leading plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	var b strings.Builder
	for i, r := range phone {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeName NFC-normalizes a display name, drops control characters and
// collapses whitespace.
func NormalizeName(name string) string {
	return Apply(name,
		norm.NFC.String,
		RemoveControlChars,
		RemoveExtraWhitespace,
	)
}

// IsLetterOrNameMark reports whether r may appear in a person's name.
func IsLetterOrNameMark(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) || r == ' ' || r == '-' || r == '\''
}
