// Package config loads service settings from .env, an optional TOML file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"Shade/internal/logging"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Addr    string `toml:"addr"`
	TLSCert string `toml:"tls_cert"`
	TLSKey  string `toml:"tls_key"`
}

type DatabaseConfig struct {
	URL string `toml:"url"`
}

type AuthConfig struct {
	TokenKey          string  `toml:"token_key"`
	AdminLogin        string  `toml:"admin_login"`
	AdminPasswordHash string  `toml:"admin_password_hash"`
	RateLimit         float64 `toml:"rate_limit"`
	RateBurst         int     `toml:"rate_burst"`
}

type UnitsConfig struct {
	// ConversionsFile seeds the conversion table and is watched for edits.
	// Empty means the table comes from the database or the built-in reference.
	ConversionsFile string `toml:"conversions_file"`
	Watch           bool   `toml:"watch"`
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Units    UnitsConfig    `toml:"units"`
	Log      logging.Config `toml:"log"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Auth:   AuthConfig{AdminLogin: "admin", RateLimit: 5, RateBurst: 10},
		Units:  UnitsConfig{ConversionsFile: "config/conversions.toml", Watch: true},
		Log:    logging.Config{Level: "info", Format: "json"},
	}
}

// Load reads .env (if present), then the TOML file at path (if present),
// then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse TOML: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"ADDR":                &c.Server.Addr,
		"TLS_CERT":            &c.Server.TLSCert,
		"TLS_KEY":             &c.Server.TLSKey,
		"DATABASE_URL":        &c.Database.URL,
		"TOKEN_KEY":           &c.Auth.TokenKey,
		"ADMIN_LOGIN":         &c.Auth.AdminLogin,
		"ADMIN_PASSWORD_HASH": &c.Auth.AdminPasswordHash,
		"CONVERSIONS_FILE":    &c.Units.ConversionsFile,
		"LOG_LEVEL":           &c.Log.Level,
		"LOG_FORMAT":          &c.Log.Format,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.Auth.RateLimit = f
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.Auth.RateBurst = n
	}
	if v := os.Getenv("WATCH_CONVERSIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WATCH_CONVERSIONS: %w", err)
		}
		c.Units.Watch = b
	}
	return nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address is not set")
	}
	if c.Auth.TokenKey == "" {
		return errors.New("TOKEN_KEY environment variable is not set")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("TLS_CERT and TLS_KEY must be set together")
	}
	return nil
}
