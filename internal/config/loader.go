package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env
// vars. Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if PODIUM_CONFIG is set
//  3. env (prefix PODIUM_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PODIUM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Env keys map flat: PODIUM_SHARD_COUNT -> shard_count. Underscores are
	// preserved to match the koanf tags on the struct.
	envProvider := env.Provider("PODIUM_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "podium_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ShardCount < 1:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.SubscriberBuffer < 1:
		return fmt.Errorf("%w: subscriber_buffer must be positive", ErrInvalidConfig)
	case c.MaxRankingLimit < 1:
		return fmt.Errorf("%w: max_ranking_limit must be positive", ErrInvalidConfig)
	case c.StoreTimeoutMS < 1:
		return fmt.Errorf("%w: store_timeout_ms must be positive", ErrInvalidConfig)
	case len(c.ModeratorRoles) == 0:
		return fmt.Errorf("%w: moderator_roles must not be empty", ErrInvalidConfig)
	}
	return nil
}
