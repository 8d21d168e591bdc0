// Package config loads process-level settings (log level, TTL sweep
// interval, persistence location) via spf13/viper, grounded on
// BeadsLog's internal/config package: an env-prefixed viper instance with
// defaults set up front and typed accessors layered on top.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix every environment variable override uses, e.g.
// CORESTORE_LOG_LEVEL.
const EnvPrefix = "CORESTORE"

// Process holds the settings that govern one Store process, independent of
// any single bucket's definition.
type Process struct {
	v *viper.Viper
}

// Load builds a Process config from defaults, an optional config file, and
// environment overrides (CORESTORE_* takes precedence over the file).
func Load(configFile string) (*Process, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("ttl-check-interval", "1s")
	v.SetDefault("persistence.enabled", false)
	v.SetDefault("persistence.driver", "memory")
	v.SetDefault("persistence.path", "corestore.db")
	v.SetDefault("persistence.flush-debounce", "200ms")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Process{v: v}, nil
}

func (p *Process) LogLevel() string { return p.v.GetString("log-level") }

// TTLCheckInterval is how often the TtlManager sweeps every bucket (spec §6
// `ttlCheckIntervalMs`).
func (p *Process) TTLCheckInterval() time.Duration {
	return p.v.GetDuration("ttl-check-interval")
}

func (p *Process) PersistenceEnabled() bool  { return p.v.GetBool("persistence.enabled") }
func (p *Process) PersistenceDriver() string { return p.v.GetString("persistence.driver") }
func (p *Process) PersistencePath() string   { return p.v.GetString("persistence.path") }

func (p *Process) PersistenceFlushDebounce() time.Duration {
	return p.v.GetDuration("persistence.flush-debounce")
}

// Set overrides a single key, mainly for tests and CLI flag binding.
func (p *Process) Set(key string, value any) { p.v.Set(key, value) }
