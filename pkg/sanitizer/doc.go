// Package sanitizer cleans user input before it is validated or stored.
//
// The functions are pure string transforms and never fail. They can be
// chained with Apply or stored as a pipeline with Compose:
//
//	clean := sanitizer.Compose(sanitizer.RemoveControlChars, sanitizer.RemoveExtraWhitespace)
//	name := clean(input)
//
// Text strips angle brackets and caps length for plain-text fields. StripHTML
// tokenizes input with golang.org/x/net/html and keeps only text content,
// dropping every tag, attribute, comment and script or style body.
// NormalizeEmail, NormalizePhone and NormalizeName canonicalize identity
// fields; names and emails are converted to Unicode NFC so visually equal
// inputs compare equal.
package sanitizer
