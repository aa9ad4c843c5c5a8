// Package config loads the registry's operating parameters from a TOML
// file, mirroring the teacher's native/lending/config.go + config/config.go
// conventions: toml-tagged fields, a createDefault-style fallback, and an
// EnsureDefaults pass for fields that must never be left as zero values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config governs the BorrowerRegistry's own operating parameters. It never
// carries chain RPC endpoints or keys — those belong to the caller-supplied
// ChainReader/EventSource implementations, which sit outside this module.
type Config struct {
	// WatchedMarkets lists the MarketId strings the registry should track,
	// in the form the caller's ChainReader/EventSource expect (e.g. "cDAI").
	WatchedMarkets []string `toml:"WatchedMarkets"`

	// HydrationBatchSize bounds how many addresses Register hydrates
	// concurrently via goroutines fanned out against ChainReader.
	HydrationBatchSize int `toml:"HydrationBatchSize"`

	// ReorgRecoveryStrategy selects how EventApplier recovers from a
	// reverted event: "refetch" (the only strategy this module
	// implements) or "local" (reserved for a future local-inversion
	// implementation; selecting it today is rejected by Validate).
	ReorgRecoveryStrategy string `toml:"ReorgRecoveryStrategy"`

	// HydrationToleranceExponent is the relative-error exponent Verify
	// uses when comparing a fresh hydration to the live replica (a value
	// of 12 means agreement to within 1e-12).
	HydrationToleranceExponent int `toml:"HydrationToleranceExponent"`

	// ScanInterval is how often a caller-driven loop should invoke
	// BorrowerRegistry.Scan. This module does not schedule the loop
	// itself; it only carries the configured cadence.
	ScanInterval time.Duration `toml:"ScanInterval"`
}

// createDefault mirrors the teacher's config.Load behavior of writing a
// usable default file on first run rather than failing outright.
func createDefault() Config {
	cfg := Config{
		WatchedMarkets:             nil,
		HydrationBatchSize:         32,
		ReorgRecoveryStrategy:      "refetch",
		HydrationToleranceExponent: 12,
		ScanInterval:               15 * time.Second,
	}
	cfg.EnsureDefaults()
	return cfg
}

// Load reads the TOML file at path. If the file does not exist, a default
// configuration is written to path and returned, matching the teacher's
// auto-create-on-first-run behavior in config/config.go.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := createDefault()
		if writeErr := save(path, cfg); writeErr != nil {
			return Config{}, fmt.Errorf("config: writing default config: %w", writeErr)
		}
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func save(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureDefaults fills in zero-valued fields that must never actually be
// zero, the way the teacher's Config.EnsureDefaults nil-checks big.Int
// fields before they reach JSON/RLP handling.
func (c *Config) EnsureDefaults() {
	if c.HydrationBatchSize <= 0 {
		c.HydrationBatchSize = 32
	}
	if c.ReorgRecoveryStrategy == "" {
		c.ReorgRecoveryStrategy = "refetch"
	}
	if c.HydrationToleranceExponent <= 0 {
		c.HydrationToleranceExponent = 12
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = 15 * time.Second
	}
}

// Validate rejects configuration this module cannot act on.
func (c *Config) Validate() error {
	if c.ReorgRecoveryStrategy != "refetch" {
		return fmt.Errorf("config: unsupported ReorgRecoveryStrategy %q (only \"refetch\" is implemented)", c.ReorgRecoveryStrategy)
	}
	if c.HydrationBatchSize <= 0 {
		return fmt.Errorf("config: HydrationBatchSize must be positive, got %d", c.HydrationBatchSize)
	}
	return nil
}
