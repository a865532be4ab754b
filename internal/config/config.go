// Package config defines service configuration and loading.
//
// Conventions follow the rest of the repo: defaults come from New, loading
// layers an optional YAML file and PODIUM_-prefixed env vars on top, and
// external errors are wrapped through this package's sentinels.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ShardCount configures the number of shards in the score store.
	ShardCount int `koanf:"shard_count"`

	// SubscriberBuffer bounds each fanout subscription's queue. When the
	// buffer overflows the oldest queued event is dropped.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// MaxRankingLimit caps GET /rankings?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// StoreTimeoutMS is the latency budget for a single store operation.
	// A stalled store surfaces as an error instead of a hang.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// ModeratorRoles lists the roles allowed to approve or reject scores.
	ModeratorRoles []string `koanf:"moderator_roles"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9090",
		ShardCount:       8,
		SubscriberBuffer: 64,
		MaxRankingLimit:  100,
		StoreTimeoutMS:   2000,
		ModeratorRoles:   []string{"admin", "moderator"},
	}
}
