// Package rlmconfig defines the driver's optional configuration file
// schema. Locating and reading the file from disk is the CLI's job;
// this package only parses bytes that have already been read into a
// Config.
package rlmconfig

import (
	"github.com/pelletier/go-toml/v2"

	"rlmdriver/internal/rlmlog"
)

const (
	DefaultMaxCallsPerSubagent = 20
	DefaultMaxDepth            = 3
	DefaultTruncateLen         = 5000
)

// Config is the recognized subset of the configuration file. Unknown
// keys are ignored by go-toml's default decode behavior.
type Config struct {
	MaxCallsPerSubagent int    `toml:"max_calls_per_subagent"`
	MaxDepth            *int   `toml:"max_depth"`
	TruncateLen         int    `toml:"truncate_len"`
	PrimaryAgent        string `toml:"primary_agent"`
	SubAgent            string `toml:"sub_agent"`
	MaxPromptTokens     int    `toml:"max_prompt_tokens"`
	MaxCompletionTokens int    `toml:"max_completion_tokens"`

	// MaxMoneySpent is accepted but ignored; cost-based budgeting is
	// deprecated in favor of token caps.
	MaxMoneySpent any `toml:"max_money_spent"`
}

var log = rlmlog.Named("config")

// Parse decodes TOML bytes into a Config, applies defaults for unset
// numeric fields, and warns once if a deprecated key was present.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	if cfg.MaxCallsPerSubagent <= 0 {
		cfg.MaxCallsPerSubagent = DefaultMaxCallsPerSubagent
	}
	if cfg.MaxDepth == nil {
		depth := DefaultMaxDepth
		cfg.MaxDepth = &depth
	}
	if cfg.TruncateLen <= 0 {
		cfg.TruncateLen = DefaultTruncateLen
	}
	if cfg.MaxMoneySpent != nil {
		log.Warn("max_money_spent is deprecated and ignored; use max_prompt_tokens / max_completion_tokens")
	}
	return cfg
}

// Depth returns the resolved max-depth value (never nil after Parse).
func (c Config) Depth() int {
	if c.MaxDepth == nil {
		return DefaultMaxDepth
	}
	return *c.MaxDepth
}
