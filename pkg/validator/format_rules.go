package validator

import (
	"regexp"
	"strings"

	"github.com/dmitrymomot/inspectauth/pkg/sanitizer"
)

const (
	MaxEmailLength = 254
	MaxPhoneLength = 16
	MinNameLength  = 2
	MaxNameLength  = 50
)

var (
	// Approximates RFC 5322 addr-spec for the addresses people actually use.
	emailRegex = regexp.MustCompile("^[a-z0-9!#$%&'*+/=?^_`{|}~.-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$")

	// Optional leading plus, no leading zero, 7 to 15 digits.
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
)

// ValidEmail checks the address shape. value must already be normalized.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if !emailRegex.MatchString(value) {
				return false
			}
			local := value[:strings.LastIndex(value, "@")]
			return !strings.HasPrefix(local, ".") &&
				!strings.HasSuffix(local, ".") &&
				!strings.Contains(local, "..")
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a valid email address",
			Code:    "email",
		},
	}
}

// ValidPhone checks an international number. value must already be
// normalized to digits with an optional leading plus.
func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return len(value) <= MaxPhoneLength && phoneRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a valid phone number in international format",
			Code:    "phone",
		},
	}
}

// ValidName allows letters, spaces, hyphens and apostrophes only.
func ValidName(field, value string) Rule {
	return Rule{
		Check: func() bool {
			for _, r := range value {
				if !sanitizer.IsLetterOrNameMark(r) {
					return false
				}
			}
			return true
		},
		Error: ValidationError{
			Field:   field,
			Message: "may only contain letters, spaces, hyphens and apostrophes",
			Code:    "name",
		},
	}
}
