// Package config loads server configuration from environment variables and
// an optional app.env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ringtap/ringtap/internal/errs"
)

// Config carries everything the server needs at boot.
type Config struct {
	Addr             string        `mapstructure:"ADDR"`
	DatabaseDSN      string        `mapstructure:"DATABASE_DSN"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	JWTKey           string        `mapstructure:"JWT_KEY"`
	DeepLinkScheme   string        `mapstructure:"DEEP_LINK_SCHEME"`
	DefaultRingModel string        `mapstructure:"DEFAULT_RING_MODEL"`
	AllowedOrigins   string        `mapstructure:"ALLOWED_ORIGINS"`
	OAuthTokenURL    string        `mapstructure:"OAUTH_TOKEN_URL"`
	ClaimFailLimit   int           `mapstructure:"CLAIM_FAIL_LIMIT"`
	ClaimFailWindow  time.Duration `mapstructure:"CLAIM_FAIL_WINDOW"`
	ClaimBlockFor    time.Duration `mapstructure:"CLAIM_BLOCK_FOR"`
}

// Load reads configuration from path (app.env, optional) and the environment.
func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	for _, key := range []string{
		"ADDR", "DATABASE_DSN", "REDIS_ADDR", "JWT_KEY",
		"DEEP_LINK_SCHEME", "DEFAULT_RING_MODEL", "ALLOWED_ORIGINS",
		"OAUTH_TOKEN_URL", "CLAIM_FAIL_LIMIT", "CLAIM_FAIL_WINDOW", "CLAIM_BLOCK_FOR",
	} {
		_ = viper.BindEnv(key)
	}

	viper.SetDefault("ADDR", ":8080")
	viper.SetDefault("DEEP_LINK_SCHEME", "ringtap")
	viper.SetDefault("DEFAULT_RING_MODEL", "classic-silver")
	viper.SetDefault("CLAIM_FAIL_LIMIT", 10)
	viper.SetDefault("CLAIM_FAIL_WINDOW", 15*time.Minute)
	viper.SetDefault("CLAIM_BLOCK_FOR", 15*time.Minute)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports misconfiguration as an operator-facing error.
func (c Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("%w: DATABASE_DSN is required", errs.ErrConfiguration)
	}
	if c.JWTKey == "" {
		return fmt.Errorf("%w: JWT_KEY is required", errs.ErrConfiguration)
	}
	return nil
}

// Origins splits the comma-separated allowed origins list.
func (c Config) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
