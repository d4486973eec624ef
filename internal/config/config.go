// Package config loads the run configuration for a batch execution. The file
// is read once at startup, defaults are applied, and the result is validated
// before any processing starts; it is immutable for the life of the run.
package config

import (
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/avolkov/cardbatch/internal/domain"
)

// Config is the full configuration surface of one batch run.
type Config struct {
	// ProcessingDate selects the logical batch date (YYYY-MM-DD).
	ProcessingDate string `yaml:"processing_date"`

	// HomeCountry is the issuer's country; transactions against merchants in
	// any other country are flagged international.
	HomeCountry string `yaml:"home_country"`

	BatchSize int `yaml:"batch_size"`

	HighValueThreshold     string  `yaml:"high_value_threshold"`
	FraudScoreThreshold    float64 `yaml:"fraud_score_threshold"`
	DuplicateWindowMinutes int     `yaml:"duplicate_window_minutes"`
	VelocityMinCount       int     `yaml:"velocity_min_count"`
	GeoAnomalyWindowMins   int     `yaml:"geo_anomaly_window_minutes"`
	OFACMatchThreshold     float64 `yaml:"ofac_match_threshold"`

	Structuring StructuringConfig `yaml:"structuring"`

	Features FeaturesConfig `yaml:"features"`

	BigQuery BigQueryConfig `yaml:"bigquery"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Queue    QueueConfig    `yaml:"queue"`
	Scorer   ScorerConfig   `yaml:"scorer"`
	Notion   NotionConfig   `yaml:"notion"`

	// Parsed forms, populated by Validate.
	Date      civil.Date      `yaml:"-"`
	HighValue decimal.Decimal `yaml:"-"`
	StructLow decimal.Decimal `yaml:"-"`
	StructHi  decimal.Decimal `yaml:"-"`
}

// StructuringConfig bounds the AML structuring rule.
type StructuringConfig struct {
	WindowDays int    `yaml:"window_days"`
	MinCount   int    `yaml:"min_count"`
	LowAmount  string `yaml:"low_amount"`
	HighAmount string `yaml:"high_amount"`
}

// FeaturesConfig enables optional stages. Pointers distinguish "omitted"
// (defaults to enabled) from an explicit false.
type FeaturesConfig struct {
	Fraud      *bool `yaml:"fraud"`
	Compliance *bool `yaml:"compliance"`
	Archiving  *bool `yaml:"archiving"`
}

// BigQueryConfig locates the warehouse dataset.
type BigQueryConfig struct {
	ProjectID       string `yaml:"project_id"`
	Dataset         string `yaml:"dataset"`
	CredentialsFile string `yaml:"credentials_file"`
}

// ArchiveConfig locates the GCS archive export.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// QueueConfig sizes the fraud-review job queue.
type QueueConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// ScorerConfig selects the external fraud scorer implementation.
type ScorerConfig struct {
	// Mode is "static" (fixed score, offline runs) or "gemini".
	Mode  string  `yaml:"mode"`
	Model string  `yaml:"model"`
	Fixed float64 `yaml:"fixed_score"`
}

// NotionConfig enables the review-board notifier when both fields are set.
type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// Load reads and parses the YAML config file and applies defaults. Call
// Validate before using the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HomeCountry == "" {
		c.HomeCountry = "US"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 50000
	}
	if c.HighValueThreshold == "" {
		c.HighValueThreshold = "10000.00"
	}
	if c.FraudScoreThreshold == 0 {
		c.FraudScoreThreshold = 0.75
	}
	if c.DuplicateWindowMinutes == 0 {
		c.DuplicateWindowMinutes = 5
	}
	if c.VelocityMinCount == 0 {
		c.VelocityMinCount = 5
	}
	if c.GeoAnomalyWindowMins == 0 {
		c.GeoAnomalyWindowMins = 120
	}
	if c.OFACMatchThreshold == 0 {
		c.OFACMatchThreshold = 0.85
	}
	if c.Structuring.WindowDays == 0 {
		c.Structuring.WindowDays = 7
	}
	if c.Structuring.MinCount == 0 {
		c.Structuring.MinCount = 3
	}
	if c.Structuring.LowAmount == "" {
		c.Structuring.LowAmount = "9000.00"
	}
	if c.Structuring.HighAmount == "" {
		c.Structuring.HighAmount = "9999.99"
	}
	if c.Queue.BufferSize == 0 {
		c.Queue.BufferSize = 100
	}
	if c.Scorer.Mode == "" {
		c.Scorer.Mode = "static"
	}
	if c.Scorer.Model == "" {
		c.Scorer.Model = "gemini-2.0-flash"
	}
}

// Validate checks the configuration and populates the parsed fields. All
// failures wrap domain.ErrConfigurationInvalid and abort the run before any
// processing.
func (c *Config) Validate() error {
	if c.ProcessingDate == "" {
		return fmt.Errorf("%w: processing_date is required", domain.ErrConfigurationInvalid)
	}
	d, err := civil.ParseDate(c.ProcessingDate)
	if err != nil {
		return fmt.Errorf("%w: processing_date %q: %v", domain.ErrConfigurationInvalid, c.ProcessingDate, err)
	}
	c.Date = d

	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", domain.ErrConfigurationInvalid, c.BatchSize)
	}
	if c.FraudScoreThreshold < 0 || c.FraudScoreThreshold > 1 {
		return fmt.Errorf("%w: fraud_score_threshold must be in [0,1], got %v", domain.ErrConfigurationInvalid, c.FraudScoreThreshold)
	}
	if c.OFACMatchThreshold < 0 || c.OFACMatchThreshold > 1 {
		return fmt.Errorf("%w: ofac_match_threshold must be in [0,1], got %v", domain.ErrConfigurationInvalid, c.OFACMatchThreshold)
	}
	if c.DuplicateWindowMinutes < 1 {
		return fmt.Errorf("%w: duplicate_window_minutes must be positive", domain.ErrConfigurationInvalid)
	}
	if c.Structuring.WindowDays < 1 || c.Structuring.MinCount < 1 {
		return fmt.Errorf("%w: structuring window and count must be positive", domain.ErrConfigurationInvalid)
	}

	if c.HighValue, err = decimal.NewFromString(c.HighValueThreshold); err != nil {
		return fmt.Errorf("%w: high_value_threshold %q: %v", domain.ErrConfigurationInvalid, c.HighValueThreshold, err)
	}
	if c.StructLow, err = decimal.NewFromString(c.Structuring.LowAmount); err != nil {
		return fmt.Errorf("%w: structuring.low_amount %q: %v", domain.ErrConfigurationInvalid, c.Structuring.LowAmount, err)
	}
	if c.StructHi, err = decimal.NewFromString(c.Structuring.HighAmount); err != nil {
		return fmt.Errorf("%w: structuring.high_amount %q: %v", domain.ErrConfigurationInvalid, c.Structuring.HighAmount, err)
	}
	if c.StructHi.LessThan(c.StructLow) {
		return fmt.Errorf("%w: structuring amount band is inverted", domain.ErrConfigurationInvalid)
	}

	if c.Scorer.Mode != "static" && c.Scorer.Mode != "gemini" {
		return fmt.Errorf("%w: scorer.mode must be static or gemini, got %q", domain.ErrConfigurationInvalid, c.Scorer.Mode)
	}
	return nil
}

// Flags resolves the feature flag pointers; omitted flags default to enabled.
func (c *Config) Flags() domain.FeatureFlags {
	enabled := func(p *bool) bool { return p == nil || *p }
	return domain.FeatureFlags{
		Fraud:      enabled(c.Features.Fraud),
		Compliance: enabled(c.Features.Compliance),
		Archiving:  enabled(c.Features.Archiving),
	}
}

// DuplicateWindow returns the velocity sliding window as a duration.
func (c *Config) DuplicateWindow() time.Duration {
	return time.Duration(c.DuplicateWindowMinutes) * time.Minute
}

// GeoAnomalyWindow returns the impossible-travel window as a duration.
func (c *Config) GeoAnomalyWindow() time.Duration {
	return time.Duration(c.GeoAnomalyWindowMins) * time.Minute
}
