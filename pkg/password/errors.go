package password

import (
	"errors"
	"strings"
)

var (
	ErrTooShort      = errors.New("password must be at least 8 characters long")
	ErrTooLong       = errors.New("password must be at most 128 characters long")
	ErrNoUppercase   = errors.New("password must contain an uppercase letter")
	ErrNoLowercase   = errors.New("password must contain a lowercase letter")
	ErrNoDigit       = errors.New("password must contain a digit")
	ErrNoSpecial     = errors.New("password must contain a special character")
	ErrCommonPattern = errors.New("password must not contain common patterns")
	ErrRepeatedChars = errors.New("password must not repeat a character three times in a row")

	// ErrWeakPassword is matched by every *WeakPasswordError.
	ErrWeakPassword = errors.New("password does not meet strength requirements")

	ErrInvalidCost   = errors.New("bcrypt cost must be at least 12")
	ErrInvalidLength = errors.New("generated password length must be at least 4")
)

// WeakPasswordError lists every strength rule a password violated.
type WeakPasswordError struct {
	Violations []error
}

func (e *WeakPasswordError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Error())
	}
	return ErrWeakPassword.Error() + ": " + strings.Join(msgs, "; ")
}

// Is reports ErrWeakPassword and each individual violation.
func (e *WeakPasswordError) Is(target error) bool {
	if target == ErrWeakPassword {
		return true
	}
	for _, v := range e.Violations {
		if v == target {
			return true
		}
	}
	return false
}
