package redis

import "time"

// Config configures the shared Redis connection. An empty ConnectionURL
// means the caller should fall back to in-process stores.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"15s"`

	// KeyPrefix namespaces every key written by this service.
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"inspectauth:"`
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool { return c.ConnectionURL != "" }
