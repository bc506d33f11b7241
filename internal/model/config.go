package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config is the complete reportgate configuration
type Config struct {
	Lint        LintConfig        `yaml:"lint" mapstructure:"lint"`
	KPI         KPIConfig         `yaml:"kpi" mapstructure:"kpi"`
	Critic      CriticConfig      `yaml:"critic" mapstructure:"critic"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// LintConfig tunes the numeric table linter
type LintConfig struct {
	PercentSumTolerance float64  `yaml:"percent_sum_tolerance" mapstructure:"percent_sum_tolerance"` // Percentage points
	PercentPattern      string   `yaml:"percent_pattern" mapstructure:"percent_pattern"`             // Must capture the number in group 1
	CurrencyPattern     string   `yaml:"currency_pattern" mapstructure:"currency_pattern"`           // Tokens are bounded by non-letters, so "500kr" matches
	LossKeywords        []string `yaml:"loss_keywords" mapstructure:"loss_keywords"`                 // Soften negative currency to a warning
	DistributionHints   []string `yaml:"distribution_hints" mapstructure:"distribution_hints"`       // Header tokens that enable the row sum check
}

// KPIConfig tunes KPI normalization and conflict detection
type KPIConfig struct {
	YearHeaderPattern    string  `yaml:"year_header_pattern" mapstructure:"year_header_pattern"`
	ActorHeaderPattern   string  `yaml:"actor_header_pattern" mapstructure:"actor_header_pattern"`
	PercentPattern       string  `yaml:"percent_pattern" mapstructure:"percent_pattern"`
	PercentHeaderPattern string  `yaml:"percent_header_pattern" mapstructure:"percent_header_pattern"`
	CurrencyPattern      string  `yaml:"currency_pattern" mapstructure:"currency_pattern"` // Must capture the token in group 1
	PreferColumnLabels   bool    `yaml:"prefer_column_labels" mapstructure:"prefer_column_labels"`
	SampleRows           int     `yaml:"sample_rows" mapstructure:"sample_rows"`
	DigitColumnRatio     float64 `yaml:"digit_column_ratio" mapstructure:"digit_column_ratio"`

	Units UnitConfig `yaml:"units" mapstructure:"units"`

	MinDistinctDocs      int     `yaml:"min_distinct_docs" mapstructure:"min_distinct_docs"`
	PercentAbsTolerance  float64 `yaml:"percent_abs_tolerance" mapstructure:"percent_abs_tolerance"`   // Percentage points
	CurrencyRelTolerance float64 `yaml:"currency_rel_tolerance" mapstructure:"currency_rel_tolerance"` // Percent of mean
	GeneralRelTolerance  float64 `yaml:"general_rel_tolerance" mapstructure:"general_rel_tolerance"`   // Percent of mean
	ErrorMultiplier      float64 `yaml:"error_multiplier" mapstructure:"error_multiplier"`             // Tolerance multiple that escalates to error
}

// UnitConfig is the unit canonicalization table
type UnitConfig struct {
	Aliases      map[string]string  `yaml:"aliases" mapstructure:"aliases"` // alias -> canonical name
	Scales       map[string]float64 `yaml:"scales" mapstructure:"scales"`   // canonical currency name -> factor to base
	BaseCurrency string             `yaml:"base_currency" mapstructure:"base_currency"`
	PercentUnit  string             `yaml:"percent_unit" mapstructure:"percent_unit"`
}

// CriticConfig tunes the post-write citation critic
type CriticConfig struct {
	RequiredCoveragePct float64  `yaml:"required_coverage_pct" mapstructure:"required_coverage_pct"`
	ExecSummaryHeadings []string `yaml:"exec_summary_headings" mapstructure:"exec_summary_headings"`
	CitationPattern     string   `yaml:"citation_pattern" mapstructure:"citation_pattern"` // Must capture the ID in group 1
}

// CacheConfig controls the gate result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text or json
	Dir       string `yaml:"dir" mapstructure:"dir"`
}

// MetricsConfig controls metrics export
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"` // node-exporter textfile path, empty disables
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "reportgate-cache")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "reportgate")
	}

	return &Config{
		Lint: LintConfig{
			PercentSumTolerance: 2,
			PercentPattern:      `([-−]?\d+(?:[.,]\d+)?)\s*%`,
			CurrencyPattern:     `(?i)(?:^|[^\p{L}])(sek|kronor|kr|msek|mnkr|mkr|tkr)(?:[^\p{L}]|$)`,
			LossKeywords:        []string{"underskott", "förlust", "minus", "deficit", "loss"},
			DistributionHints:   []string{"andel", "%", "fördelning", "share", "distribution"},
		},
		KPI: KPIConfig{
			YearHeaderPattern:    `(?i)(?:^|[^\p{L}])(?:år|årtal|year)(?:[^\p{L}]|$)`,
			ActorHeaderPattern:   `(?i)aktör|actor|organisation|organization|förvaltning|bolag`,
			PercentPattern:       `([-−]?\d+(?:[.,]\d+)?)\s*%`,
			PercentHeaderPattern: `(?i)%|procent|percent`,
			CurrencyPattern:      `(?i)(?:^|[^\p{L}])(sek|kronor|kr|msek|mnkr|mkr|tkr)(?:[^\p{L}]|$)`,
			SampleRows:           10,
			DigitColumnRatio:     0.6,
			Units:                DefaultUnitConfig(),
			MinDistinctDocs:      2,
			PercentAbsTolerance:  1.5,
			CurrencyRelTolerance: 5,
			GeneralRelTolerance:  5,
			ErrorMultiplier:      2,
		},
		Critic: CriticConfig{
			RequiredCoveragePct: 95,
			ExecSummaryHeadings: []string{"Executive Summary", "Sammanfattning"},
			CitationPattern:     `\[(E-\d+)\]`,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Output: OutputConfig{
			LogFormat: "text",
			Dir:       "./reportgate-results",
		},
	}
}

// DefaultUnitConfig returns the Swedish currency denominations plus percent aliases
func DefaultUnitConfig() UnitConfig {
	return UnitConfig{
		Aliases: map[string]string{
			"kr":      "SEK",
			"kronor":  "SEK",
			"sek":     "SEK",
			"tkr":     "tkr",
			"mkr":     "MSEK",
			"mnkr":    "MSEK",
			"msek":    "MSEK",
			"%":       "%",
			"procent": "%",
			"percent": "%",
		},
		Scales: map[string]float64{
			"SEK":  1,
			"tkr":  1_000,
			"MSEK": 1_000_000,
		},
		BaseCurrency: "SEK",
		PercentUnit:  "%",
	}
}
