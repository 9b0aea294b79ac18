// Package password hashes, verifies and scores user passwords.
//
// Strength rules: length 8..128; at least one upper-case letter, lower-case
// letter, digit and special character; no "password" or "123456" substring
// and no run of three identical characters. Every violation is reported at
// once so a form can show all problems together.
//
// Hashing uses bcrypt with a configurable cost (12 by default). Verify never
// returns an error: mismatches and malformed hashes both yield false.
//
//	svc, err := password.New(password.Config{Cost: 12})
//	hash, err := svc.Hash("Str0ng!Pass")
//	ok := svc.Verify("Str0ng!Pass", hash)
package password
