// Package config provides centralized configuration for the quickmark
// server. It loads configuration from CLI flags and environment
// variables, validates required fields, and provides sensible defaults.
//
// CLI flags control behavior knobs (--addr, --test, --allow-ownerless);
// environment variables provide secrets and paths.
package config

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quickmark-app/quickmark/internal/ratelimit"
)

const (
	DefaultListenAddr      = ":8080"
	DefaultDataDir         = "./data"
	DefaultSessionDuration = 30 * 24 * time.Hour
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string

	// Database and encryption
	DataDir   string // Directory holding quickmark.db
	MasterKey string // 64 hex characters (32 bytes); empty disables encryption

	// Sessions
	SessionDuration time.Duration

	// Unlock attempt rate limiting
	RateLimit ratelimit.Config

	// AllowOwnerless preserves the historical permissive fallback: a
	// note with neither owner nor author token is mutable by anyone.
	AllowOwnerless bool

	// TestMode swaps the Argon2id hasher for the fake in-process one.
	TestMode bool
}

// ValidationError represents a configuration validation error with
// multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Flags holds the parsed CLI flags. Call ParseFlags before Load.
type Flags struct {
	Addr           string
	TestMode       bool
	AllowOwnerless bool
}

// ParseFlags registers and parses the server's CLI flags.
func ParseFlags() Flags {
	var f Flags
	flag.StringVar(&f.Addr, "addr", DefaultListenAddr, "Listen address")
	flag.BoolVar(&f.TestMode, "test", false, "Test mode: fake password hasher, no encryption")
	flag.BoolVar(&f.AllowOwnerless, "allow-ownerless", true, "Allow anyone to mutate ownerless, tokenless notes")
	flag.Parse()
	return f
}

// Load builds the configuration from flags and environment variables.
func Load(f Flags) (*Config, error) {
	cfg := &Config{
		ListenAddr:      f.Addr,
		DataDir:         envOr("QUICKMARK_DATA_DIR", DefaultDataDir),
		MasterKey:       os.Getenv("QUICKMARK_MASTER_KEY"),
		SessionDuration: DefaultSessionDuration,
		RateLimit:       ratelimit.DefaultConfig,
		AllowOwnerless:  f.AllowOwnerless,
		TestMode:        f.TestMode,
	}

	if d := os.Getenv("QUICKMARK_SESSION_DURATION"); d != "" {
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return nil, &ValidationError{Errors: []string{
				fmt.Sprintf("QUICKMARK_SESSION_DURATION: %v", err),
			}}
		}
		cfg.SessionDuration = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for problems, collecting all issues
// rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if c.ListenAddr == "" {
		problems = append(problems, "listen address is required")
	}
	if c.DataDir == "" {
		problems = append(problems, "data directory is required")
	}
	if c.SessionDuration <= 0 {
		problems = append(problems, "session duration must be positive")
	}
	if c.MasterKey != "" {
		key, err := hex.DecodeString(c.MasterKey)
		if err != nil {
			problems = append(problems, "QUICKMARK_MASTER_KEY must be hex")
		} else if len(key) != 32 {
			problems = append(problems, fmt.Sprintf("QUICKMARK_MASTER_KEY must be 32 bytes (64 hex chars), got %d bytes", len(key)))
		}
	}
	if !c.TestMode && c.MasterKey == "" {
		problems = append(problems, "QUICKMARK_MASTER_KEY is required outside test mode")
	}

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

// DatabasePath returns the path of the application database file.
func (c *Config) DatabasePath() string {
	return c.DataDir + string(os.PathSeparator) + "quickmark.db"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
