package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SOLACE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "SOLACE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "store.mode", typ: kString, env: "SOLACE_STORE_MODE",
		apply:   func(cfg *Config, v any) { cfg.Store.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Mode },
	},
	{
		key: "store.dsn", typ: kString, env: "SOLACE_STORE_DSN",
		apply:   func(cfg *Config, v any) { cfg.Store.DSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.DSN },
	},
	{
		key: "store.dsn_token", typ: kString, env: "SOLACE_STORE_DSN_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Store.DSNToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.DSNToken },
	},
	{
		key: "store.remote_url", typ: kString, env: "SOLACE_STORE_REMOTE_URL",
		apply:   func(cfg *Config, v any) { cfg.Store.RemoteURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.RemoteURL },
	},
	{
		key: "store.local_path", typ: kString, env: "SOLACE_STORE_LOCAL_PATH",
		apply:   func(cfg *Config, v any) { cfg.Store.LocalPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.LocalPath },
	},
	{
		key: "store.retry_attempts", typ: kInt, env: "SOLACE_STORE_RETRY_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Store.RetryAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Store.RetryAttempts },
	},
	{
		key: "store.retry_backoff", typ: kDuration, env: "SOLACE_STORE_RETRY_BACKOFF",
		apply:   func(cfg *Config, v any) { cfg.Store.RetryBackoff = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Store.RetryBackoff },
	},
	{
		key: "migration.concurrency", typ: kInt, env: "SOLACE_MIGRATION_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Migration.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Migration.Concurrency },
	},
	{
		key: "log.level", typ: kString, env: "SOLACE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("reading %s: %w", s.key, err)
				}
				s.apply(cfg, d)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
