package validator

import (
	"strings"

	"github.com/dmitrymomot/inspectauth/pkg/password"
	"github.com/dmitrymomot/inspectauth/pkg/sanitizer"
)

// SelfRegistrationRoles are the roles a user may pick when signing up.
var SelfRegistrationRoles = []string{"tenant", "landlord", "property_manager", "inspector"}

// FieldResult is the outcome of validating one field.
type FieldResult struct {
	IsValid bool
	Errors  []string
	Value   string
}

func fieldResult(value string, err error) FieldResult {
	errs := ExtractValidationErrors(err)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return FieldResult{IsValid: len(errs) == 0, Errors: msgs, Value: value}
}

func emailRules(field, value string) []Rule {
	if strings.TrimSpace(value) == "" {
		return []Rule{Required(field, value)}
	}
	return []Rule{
		MaxLen(field, value, MaxEmailLength),
		ValidEmail(field, value),
	}
}

func phoneRules(field, value string) []Rule {
	if value == "" {
		return nil
	}
	return []Rule{ValidPhone(field, value)}
}

func nameRules(field, value string) []Rule {
	if value == "" {
		return []Rule{Required(field, value)}
	}
	return []Rule{
		MinLen(field, value, MinNameLength),
		MaxLen(field, value, MaxNameLength),
		ValidName(field, value),
	}
}

// ValidateEmail normalizes and validates an email address.
func ValidateEmail(raw string) FieldResult {
	v := sanitizer.NormalizeEmail(raw)
	return fieldResult(v, Apply(emailRules("email", v)...))
}

// ValidatePhone normalizes and validates an optional phone number.
// An empty value is valid.
func ValidatePhone(raw string) FieldResult {
	v := sanitizer.NormalizePhone(raw)
	if strings.TrimSpace(raw) != "" && v == "" {
		// Nothing numeric survived normalization.
		return fieldResult(v, Apply(ValidPhone("phone", raw)))
	}
	return fieldResult(v, Apply(phoneRules("phone", v)...))
}

// ValidateName normalizes and validates a display name.
func ValidateName(raw string) FieldResult {
	v := sanitizer.NormalizeName(raw)
	return fieldResult(v, Apply(nameRules("name", v)...))
}

// RegistrationInput is the raw sign-up form.
type RegistrationInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name"`
	Phone           string `json:"phone,omitempty"`
	Role            string `json:"role"`
}

// RegistrationData is the sanitized sign-up form.
type RegistrationData struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string
}

// ValidateRegistrationData validates every field of a sign-up form, password
// strength included, and returns sanitized data only when all pass. The
// error is a ValidationErrors listing every failure.
func ValidateRegistrationData(in RegistrationInput) (*RegistrationData, error) {
	data := &RegistrationData{
		Email:    sanitizer.NormalizeEmail(in.Email),
		Password: in.Password,
		Name:     sanitizer.NormalizeName(in.Name),
		Phone:    sanitizer.NormalizePhone(in.Phone),
		Role:     strings.TrimSpace(in.Role),
	}

	var rules []Rule
	rules = append(rules, emailRules("email", data.Email)...)
	rules = append(rules, nameRules("name", data.Name)...)
	if strings.TrimSpace(in.Phone) != "" && data.Phone == "" {
		rules = append(rules, ValidPhone("phone", in.Phone))
	} else {
		rules = append(rules, phoneRules("phone", data.Phone)...)
	}
	rules = append(rules, passwordRules("password", in.Password)...)
	rules = append(rules,
		Required("confirmPassword", in.ConfirmPassword),
		Equal("confirmPassword", in.ConfirmPassword, in.Password),
		InList("role", data.Role, SelfRegistrationRoles),
	)

	if err := Apply(rules...); err != nil {
		return nil, err
	}
	return data, nil
}

// LoginInput is the raw sign-in form.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginData is the sanitized sign-in form.
type LoginData struct {
	Email    string
	Password string
}

// ValidateLoginCredentials checks that an email and a password are present
// and well-formed. Password strength is not checked at login.
func ValidateLoginCredentials(in LoginInput) (*LoginData, error) {
	email := sanitizer.NormalizeEmail(in.Email)

	rules := emailRules("email", email)
	rules = append(rules,
		Required("password", in.Password),
		MaxLen("password", in.Password, password.MaxLength),
	)

	if err := Apply(rules...); err != nil {
		return nil, err
	}
	return &LoginData{Email: email, Password: in.Password}, nil
}

// passwordRules turns each strength violation into a rule so that all of
// them are reported with the other fields.
func passwordRules(field, value string) []Rule {
	if value == "" {
		return []Rule{Required(field, value)}
	}
	res := password.ValidateStrength(value)
	rules := make([]Rule, 0, len(res.Errors))
	for _, err := range res.Errors {
		rules = append(rules, Custom(field, func() bool { return false }, err.Error(), "weak_password"))
	}
	return rules
}
