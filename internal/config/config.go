// Package config loads service settings from flags, LOOTDRAFT_* environment
// variables and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
)

const EnvPrefix = "LOOTDRAFT"

type Config struct {
	Addr            string
	IdleTimeout     time.Duration
	SweepInterval   time.Duration
	EvictAfter      time.Duration
	MaxParticipants int
	MaxRoll         int
	LogLevel        string
	LogFormat       string
	DatabaseURL     string
}

// BindFlags registers every setting with its default.
func BindFlags(flags *pflag.FlagSet) {
	flags.String("addr", ":8080", "HTTP listen address")
	flags.Duration("idle-timeout", 30*time.Minute, "end sessions with no accepted action for this long")
	flags.Duration("sweep-interval", 30*time.Second, "how often idle sessions are checked")
	flags.Duration("evict-after", time.Minute, "how long finished sessions stay readable before eviction")
	flags.Int("max-participants", engine.DefaultMaxParticipants, "largest roster a session accepts")
	flags.Int("max-roll", engine.DefaultMaxRoll, "highest value a roll can produce")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", "json", "json or console")
	flags.String("database-url", "", "Postgres DSN for the outcome archive; empty disables it")
}

// Load resolves the configuration. envFile may be empty or missing.
func Load(flags *pflag.FlagSet, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	cfg := Config{
		Addr:            v.GetString("addr"),
		IdleTimeout:     v.GetDuration("idle-timeout"),
		SweepInterval:   v.GetDuration("sweep-interval"),
		EvictAfter:      v.GetDuration("evict-after"),
		MaxParticipants: v.GetInt("max-participants"),
		MaxRoll:         v.GetInt("max-roll"),
		LogLevel:        v.GetString("log-level"),
		LogFormat:       v.GetString("log-format"),
		DatabaseURL:     v.GetString("database-url"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr is required")
	}
	if c.IdleTimeout <= 0 {
		problems = append(problems, "idle-timeout must be positive")
	}
	if c.SweepInterval <= 0 {
		problems = append(problems, "sweep-interval must be positive")
	}
	if c.EvictAfter < 0 {
		problems = append(problems, "evict-after must not be negative")
	}
	if c.MaxParticipants < 1 || c.MaxParticipants > engine.DefaultMaxParticipants {
		problems = append(problems, fmt.Sprintf("max-participants must be between 1 and %d", engine.DefaultMaxParticipants))
	}
	if c.MaxRoll < 2 {
		problems = append(problems, "max-roll must be at least 2")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) Limits() engine.Limits {
	return engine.Limits{MaxParticipants: c.MaxParticipants, MaxRoll: c.MaxRoll}
}
