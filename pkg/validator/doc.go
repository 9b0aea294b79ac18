// Package validator checks user input before it reaches business logic.
//
// Validation is declarative: each check is a Rule holding a Check function
// and the ValidationError to report. Apply runs all rules without
// short-circuiting and returns the failures as ValidationErrors, which
// implements error and matches ErrValidationFailed:
//
//	err := validator.Apply(
//		validator.Required("email", email),
//		validator.ValidEmail("email", email),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		// verrs.Get("email"), verrs.Fields(), ...
//	}
//
// On top of the rules sit the auth input validators. ValidateEmail,
// ValidatePhone and ValidateName sanitize one field and return a
// FieldResult. ValidateRegistrationData and ValidateLoginCredentials check a
// whole form and return sanitized data only when every field passes.
//
// Field rules:
//   - email: RFC 5322 approximation, at most 254 characters, no leading,
//     trailing or doubled dots in the local part;
//   - phone: optional, digits with an optional leading plus, at most 16
//     characters;
//   - name: letters, spaces, hyphens and apostrophes, 2 to 50 characters.
package validator
