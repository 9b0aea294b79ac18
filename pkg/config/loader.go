package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// configCache stores parsed configuration values keyed by type name.
type configCache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	globalCache = &configCache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}

	defaultEnvLoaded sync.Once
)

// Validator is implemented by config structs that check their own invariants
// after parsing.
type Validator interface {
	Validate() error
}

// Load parses environment variables into v. Each configuration type is parsed
// once; later calls are served from the cache. The default .env file is read
// on first use when present.
//
// If *T implements Validator, Validate runs after parsing and a failure is
// returned wrapped in ErrInvalidConfig without being cached.
//
//	type JWTConfig struct {
//		Secret string        `env:"JWT_SECRET,required"`
//		TTL    time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
//	}
//
//	var cfg JWTConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	typeName := getTypeName[T]()

	globalCache.mu.RLock()
	if cached, ok := globalCache.values[typeName]; ok {
		*v = cached.(T)
		globalCache.mu.RUnlock()
		return nil
	}
	globalCache.mu.RUnlock()

	globalCache.mu.Lock()
	once, exists := globalCache.onces[typeName]
	if !exists {
		once = new(sync.Once)
		globalCache.onces[typeName] = once
	}
	globalCache.mu.Unlock()

	var err error
	once.Do(func() {
		err = parse(v)
		if err != nil {
			// Allow a later attempt once the environment is fixed.
			globalCache.mu.Lock()
			delete(globalCache.onces, typeName)
			globalCache.mu.Unlock()
			return
		}

		globalCache.mu.Lock()
		globalCache.values[typeName] = *v
		globalCache.mu.Unlock()
	})
	if err != nil {
		return err
	}

	globalCache.mu.RLock()
	defer globalCache.mu.RUnlock()
	if cached, ok := globalCache.values[typeName]; ok {
		*v = cached.(T)
		return nil
	}

	return ErrConfigNotLoaded
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ForceReload parses v again, ignoring and replacing any cached value.
func ForceReload[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	typeName := getTypeName[T]()

	if err := parse(v); err != nil {
		return err
	}

	globalCache.mu.Lock()
	globalCache.values[typeName] = *v
	globalCache.onces[typeName] = new(sync.Once)
	globalCache.mu.Unlock()
	return nil
}

// LoadEnv loads the given .env files into the process environment. Later
// files override earlier ones. Without arguments it reads ".env".
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	if err := godotenv.Overload(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics on failure.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("failed to load env file: %v", err))
	}
}

// ResetCache drops every cached configuration value.
func ResetCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
}

func parse[T any](v *T) error {
	var fresh T
	if err := env.Parse(&fresh); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if val, ok := any(&fresh).(Validator); ok {
		if err := val.Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}
	*v = fresh
	return nil
}

func getTypeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.PkgPath() + "." + t.String()
}
