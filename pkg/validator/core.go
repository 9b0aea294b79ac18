package validator

import (
	"errors"
	"strings"
)

// ValidationError is a single field failure. Code is a stable machine-readable
// identifier; Message is meant for people.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects field failures and implements error.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, e := range ve {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.String())
	}
	return b.String()
}

// Is makes every ValidationErrors match ErrValidationFailed.
func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidationFailed
}

func (ve *ValidationErrors) Add(err ValidationError) {
	*ve = append(*ve, err)
}

// Merge appends every error of other.
func (ve *ValidationErrors) Merge(other ValidationErrors) {
	*ve = append(*ve, other...)
}

func (ve ValidationErrors) Has(field string) bool {
	for _, e := range ve {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Get returns the messages reported for field.
func (ve ValidationErrors) Get(field string) []string {
	var messages []string
	for _, e := range ve {
		if e.Field == field {
			messages = append(messages, e.Message)
		}
	}
	return messages
}

// Fields returns failing field names in first-seen order.
func (ve ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(ve))
	seen := make(map[string]struct{}, len(ve))
	for _, e := range ve {
		if _, ok := seen[e.Field]; ok {
			continue
		}
		seen[e.Field] = struct{}{}
		fields = append(fields, e.Field)
	}
	return fields
}

// ByField groups messages per field, ready for an API error body.
func (ve ValidationErrors) ByField() map[string][]string {
	if len(ve) == 0 {
		return nil
	}
	out := make(map[string][]string, len(ve))
	for _, e := range ve {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}

// Rule is a single check with the error reported when it fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply runs every rule and returns the failures as ValidationErrors, or nil.
// Rules never short-circuit, so callers see all problems at once.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs.Add(rule.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ExtractValidationErrors returns the ValidationErrors wrapped in err, if any.
func ExtractValidationErrors(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func IsValidationError(err error) bool {
	return ExtractValidationErrors(err) != nil
}
