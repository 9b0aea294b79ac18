// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct parsing. Each configuration type is
// parsed once per process and cached; ResetCache and ForceReload exist for
// tests.
//
// Config structs that implement Validator are checked after parsing, so
// packages can enforce minimums such as secret length or bcrypt cost at
// startup:
//
//	var cfg jwt.Config
//	config.MustLoad(&cfg)
//
// Errors are sentinel values comparable with errors.Is: ErrParsingConfig,
// ErrInvalidConfig, ErrLoadingEnvFile, ErrConfigNotLoaded and ErrNilPointer.
package config
