package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/inspectauth/pkg/cache"
	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

const (
	jwksCacheTTL  = time.Hour
	jwksCacheSize = 32
	maxJWKSBytes  = 1 << 20
)

// IDTokenVerifier checks RS256 identity tokens against a provider's JSON Web
// Key Set. Keys are cached by kid; an unknown kid triggers one refetch.
type IDTokenVerifier struct {
	jwksURL  string
	issuer   string
	audience string
	client   *http.Client
	clock    clockwork.Clock
	logger   *slog.Logger

	keys *cache.LRU[string, any]
	mu   sync.Mutex // serializes JWKS fetches
}

// NewIDTokenVerifier creates a verifier for tokens issued by issuer to audience.
func NewIDTokenVerifier(jwksURL, issuer, audience string, client *http.Client, clock clockwork.Clock, log *slog.Logger) *IDTokenVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &IDTokenVerifier{
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
		client:   client,
		clock:    clock,
		logger:   log,
		keys:     cache.New[string, any](jwksCacheSize, cache.WithTTL(jwksCacheTTL), cache.WithClock(clock)),
	}
}

// Verify parses raw into claims, checking signature, issuer, audience and
// expiry. Every failure wraps ErrInvalidIDToken.
func (v *IDTokenVerifier) Verify(ctx context.Context, raw string, claims gojwt.Claims) error {
	parser := gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodRS256.Alg()}),
		gojwt.WithIssuer(v.issuer),
		gojwt.WithAudience(v.audience),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(v.clock.Now),
	)

	_, err := parser.ParseWithClaims(raw, claims, func(t *gojwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		return v.key(ctx, kid)
	})
	if err != nil {
		v.logger.DebugContext(ctx, "identity token rejected",
			logger.Component("oauth"),
			logger.Error(err),
		)
		return errors.Join(ErrInvalidIDToken, err)
	}
	return nil
}

func (v *IDTokenVerifier) key(ctx context.Context, kid string) (any, error) {
	if k, ok := v.keys.Get(kid); ok {
		return k, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// Another caller may have refreshed while we waited.
	if k, ok := v.keys.Get(kid); ok {
		return k, nil
	}

	set, err := v.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range set.Keys {
		if k.KeyID == "" || !k.Valid() || !k.IsPublic() {
			continue
		}
		v.keys.Put(k.KeyID, k.Key)
	}

	if k, ok := v.keys.Get(kid); ok {
		return k, nil
	}
	return nil, fmt.Errorf("no key with kid %q", kid)
}

func (v *IDTokenVerifier) fetch(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	return &set, nil
}
