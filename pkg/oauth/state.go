package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// StateData is what a login attempt remembers between redirect and callback.
type StateData struct {
	Provider  string    `json:"provider"`
	Verifier  string    `json:"verifier"`
	CreatedAt time.Time `json:"created_at"`
}

// StateStore keeps pending login states. Consume must be atomic: a state can
// be read at most once.
type StateStore interface {
	Save(ctx context.Context, state string, data StateData, ttl time.Duration) error
	// Consume returns and removes the state, or ErrStateNotFound.
	Consume(ctx context.Context, state string) (StateData, error)
}

type memoryState struct {
	data      StateData
	expiresAt time.Time
}

// MemoryStateStore keeps states in process memory. Single-instance only.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
	clock  clockwork.Clock
}

// NewMemoryStateStore creates an in-memory store. A nil clock uses the real one.
func NewMemoryStateStore(clock clockwork.Clock) *MemoryStateStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStateStore{
		states: make(map[string]memoryState),
		clock:  clock,
	}
}

func (s *MemoryStateStore) Save(_ context.Context, state string, data StateData, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for k, v := range s.states {
		if !now.Before(v.expiresAt) {
			delete(s.states, k)
		}
	}
	s.states[state] = memoryState{data: data, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (StateData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.states[state]
	if !ok {
		return StateData{}, ErrStateNotFound
	}
	delete(s.states, state)

	if !s.clock.Now().Before(v.expiresAt) {
		return StateData{}, ErrStateNotFound
	}
	return v.data, nil
}

// Len returns the number of stored states, expired ones included.
func (s *MemoryStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// DefaultStatePrefix namespaces state keys in Redis.
const DefaultStatePrefix = "oauth:state:"

// RedisStateStore shares states across instances. Expiry is enforced by the
// key TTL and consumption by GETDEL.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStateStore creates a Redis-backed store. Empty prefix uses DefaultStatePrefix.
func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	if prefix == "" {
		prefix = DefaultStatePrefix
	}
	return &RedisStateStore{client: client, prefix: prefix}
}

func (s *RedisStateStore) Save(ctx context.Context, state string, data StateData, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+state, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (StateData, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return StateData{}, ErrStateNotFound
	}
	if err != nil {
		return StateData{}, fmt.Errorf("consume state: %w", err)
	}

	var data StateData
	if err := json.Unmarshal(payload, &data); err != nil {
		return StateData{}, errors.Join(ErrStateNotFound, err)
	}
	return data, nil
}
