package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinLength = 8
	MaxLength = 128

	// SpecialChars is the set that satisfies the special-character rule.
	SpecialChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?~`"
)

var commonPatterns = []string{"password", "123456"}

// StrengthResult is the outcome of ValidateStrength.
type StrengthResult struct {
	IsValid bool
	Errors  []error
	Score   int
}

// Messages returns violation messages for display.
func (r StrengthResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}
	return out
}

// ValidateStrength checks pw against every strength rule and scores it 0..5.
// One point per satisfied length/class rule, minus one per pattern penalty.
func ValidateStrength(pw string) StrengthResult {
	var (
		errs  []error
		score int
	)

	n := utf8.RuneCountInString(pw)
	switch {
	case n < MinLength:
		errs = append(errs, ErrTooShort)
	case n > MaxLength:
		errs = append(errs, ErrTooLong)
	default:
		score++
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(SpecialChars, r):
			hasSpecial = true
		}
	}

	for _, c := range []struct {
		ok  bool
		err error
	}{
		{hasUpper, ErrNoUppercase},
		{hasLower, ErrNoLowercase},
		{hasDigit, ErrNoDigit},
		{hasSpecial, ErrNoSpecial},
	} {
		if c.ok {
			score++
		} else {
			errs = append(errs, c.err)
		}
	}

	lower := strings.ToLower(pw)
	for _, p := range commonPatterns {
		if strings.Contains(lower, p) {
			errs = append(errs, ErrCommonPattern)
			score--
			break
		}
	}

	if hasRepeatedRun(pw, 3) {
		errs = append(errs, ErrRepeatedChars)
		score--
	}

	return StrengthResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
		Score:   max(0, min(score, 5)),
	}
}

func hasRepeatedRun(s string, n int) bool {
	var (
		prev rune
		run  int
	)
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}
