package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// Config holds hashing settings.
type Config struct {
	Cost int `env:"PASSWORD_BCRYPT_COST" envDefault:"12"`
}

// Validate enforces the minimum production work factor.
func (c *Config) Validate() error {
	if c.Cost < DefaultCost {
		return ErrInvalidCost
	}
	return nil
}

// Service hashes and verifies passwords.
type Service struct {
	cost      int
	dummyHash []byte
	logger    *slog.Logger
}

// Option configures Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCost overrides the configured cost without the production minimum.
// Intended for tests.
func WithCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// New creates a Service. A zero Config.Cost means DefaultCost.
func New(cfg Config, opts ...Option) (*Service, error) {
	if cfg.Cost == 0 {
		cfg.Cost = DefaultCost
	}

	s := &Service{
		cost:   cfg.Cost,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cost < bcrypt.MinCost || s.cost > bcrypt.MaxCost {
		return nil, ErrInvalidCost
	}

	dummy, err := GenerateSecurePassword(16)
	if err != nil {
		return nil, err
	}
	s.dummyHash, err = bcrypt.GenerateFromPassword(prehash(dummy), s.cost)
	if err != nil {
		return nil, fmt.Errorf("password: dummy hash: %w", err)
	}

	return s, nil
}

// ValidateStrength is a method form of the package function.
func (s *Service) ValidateStrength(pw string) StrengthResult {
	return ValidateStrength(pw)
}

// Hash validates pw and returns its bcrypt hash.
func (s *Service) Hash(pw string) (string, error) {
	if res := ValidateStrength(pw); !res.IsValid {
		return "", &WeakPasswordError{Violations: res.Errors}
	}

	hash, err := bcrypt.GenerateFromPassword(prehash(pw), s.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether pw matches hash.
func (s *Service) Verify(pw, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(pw))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		s.logger.Error("password verification failed",
			logger.Component("password"),
			logger.Error(err),
		)
	}
	return false
}

// CompareDummy spends the same time as a real Verify. Call it on paths where
// there is no hash to compare, so response timing does not reveal that.
func (s *Service) CompareDummy(pw string) {
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, prehash(pw))
}

// prehash condenses pw to 44 ASCII bytes. bcrypt reads at most 72 bytes, and
// a 128-character password of multi-byte runes is far longer than that.
// Base64 keeps NUL bytes out of the bcrypt input.
func prehash(pw string) []byte {
	sum := sha256.Sum256([]byte(pw))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

const (
	upperChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars = "0123456789"
)

// GenerateSecurePassword returns a random password of the given length
// (12 when length is 0) with at least one upper, lower, digit and special
// character.
func GenerateSecurePassword(length int) (string, error) {
	if length == 0 {
		length = 12
	}
	if length < 4 {
		return "", ErrInvalidLength
	}

	all := upperChars + lowerChars + digitChars + SpecialChars
	out := make([]byte, 0, length)

	for _, set := range []string{upperChars, lowerChars, digitChars, SpecialChars} {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	for i := len(out) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func pick(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("password: random: %w", err)
	}
	return int(v.Int64()), nil
}
