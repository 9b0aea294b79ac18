package validator

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Required fails on an empty or whitespace-only value.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Code: "required", Message: "field is required"},
	}
}

// MinLen counts runes, not bytes.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:   field,
			Code:    "min_length",
			Message: fmt.Sprintf("must be at least %d characters long", min),
		},
	}
}

// MaxLen counts runes, not bytes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:   field,
			Code:    "max_length",
			Message: fmt.Sprintf("must be at most %d characters long", max),
		},
	}
}

// Equal checks a confirmation field against its original.
func Equal(field, value, other string) Rule {
	return Rule{
		Check: func() bool { return value == other },
		Error: ValidationError{Field: field, Code: "mismatch", Message: "does not match"},
	}
}

func InList(field, value string, allowed []string) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{
			Field:   field,
			Code:    "in_list",
			Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
		},
	}
}

// Custom wraps an arbitrary check.
func Custom(field string, check func() bool, message, code string) Rule {
	return Rule{
		Check: check,
		Error: ValidationError{Field: field, Code: code, Message: message},
	}
}
