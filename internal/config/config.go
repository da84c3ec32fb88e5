// SPDX-License-Identifier: Apache-2.0

// Package config loads the settings of the entity hierarchy component from
// an optional YAML file, ENTHIER_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
	"github.com/gemaraproj/entity-hierarchy/internal/hierarchy"
)

const envPrefix = "ENTHIER"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting.
type Config struct {
	EntityFile              string `mapstructure:"entity_file"`
	ModelFile               string `mapstructure:"model_file"`
	CaseSensitive           bool   `mapstructure:"case_sensitive"`
	IncludeRepeatedEntities bool   `mapstructure:"include_repeated_entities"`
	NonWordBoundaries       string `mapstructure:"non_word_boundaries"`
	ExtractorName           string `mapstructure:"extractor_name"`
	MaxReferenceDepth       int    `mapstructure:"max_reference_depth"`
	MaxExpansions           int    `mapstructure:"max_expansions"`
	CacheSize               int    `mapstructure:"cache_size"`
	NormalizeUnicode        bool   `mapstructure:"normalize_unicode"`

	Log    LogConfig    `mapstructure:"log"`
	Intent IntentConfig `mapstructure:"intent"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// IntentConfig configures the entity-only intent heuristic.
type IntentConfig struct {
	Name                string   `mapstructure:"name"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
	AlwaysReplace       string   `mapstructure:"always_replace"`
	Stopwords           []string `mapstructure:"stopwords"`
	MaxStopwords        int      `mapstructure:"max_stopwords"`
}

// DefaultStopwords are the German articles, including colloquial short
// forms, ignored by the intent heuristic.
var DefaultStopwords = []string{
	"der", "die", "das", "ein", "eine", "eines", "einen", "einer", "en", "ne", "ene",
}

// New returns a viper instance with the env binding and defaults applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("entity_file", "")
	v.SetDefault("model_file", "entity_hierarchy.json")
	v.SetDefault("case_sensitive", false)
	v.SetDefault("include_repeated_entities", false)
	v.SetDefault("non_word_boundaries", extraction.DefaultNonWordBoundaries)
	v.SetDefault("extractor_name", extraction.DefaultExtractorName)
	v.SetDefault("max_reference_depth", hierarchy.DefaultMaxDepth)
	v.SetDefault("max_expansions", hierarchy.DefaultMaxExpansions)
	v.SetDefault("cache_size", 0)
	v.SetDefault("normalize_unicode", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("intent.name", "")
	v.SetDefault("intent.confidence_threshold", 0.0)
	v.SetDefault("intent.always_replace", "nlu_fallback")
	v.SetDefault("intent.stopwords", DefaultStopwords)
	v.SetDefault("intent.max_stopwords", 2)
}

// Load reads configPath when it is not empty, then decodes and validates v.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	switch {
	case c.MaxReferenceDepth < 0:
		return fmt.Errorf("%w: max_reference_depth must not be negative", ErrInvalidConfig)
	case c.MaxExpansions < 0:
		return fmt.Errorf("%w: max_expansions must not be negative", ErrInvalidConfig)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cache_size must not be negative", ErrInvalidConfig)
	case c.Intent.MaxStopwords < 0:
		return fmt.Errorf("%w: intent.max_stopwords must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CompilerOptions returns the compiler limits.
func (c *Config) CompilerOptions() hierarchy.CompilerOptions {
	return hierarchy.CompilerOptions{
		MaxDepth:         c.MaxReferenceDepth,
		MaxExpansions:    c.MaxExpansions,
		NormalizeUnicode: c.NormalizeUnicode,
	}
}

// ExtractionOptions returns the extractor settings.
func (c *Config) ExtractionOptions() extraction.Options {
	return extraction.Options{
		CaseSensitive:         c.CaseSensitive,
		AllowRepeatedEntities: c.IncludeRepeatedEntities,
		ExtractorName:         c.ExtractorName,
		NonWordBoundaries:     c.NonWordBoundaries,
		CacheSize:             c.CacheSize,
		NormalizeUnicode:      c.NormalizeUnicode,
	}
}
