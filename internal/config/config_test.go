package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/avolkov/cardbatch/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "processing_date: \"2026-08-28\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.BatchSize != 50000 {
		t.Errorf("BatchSize = %d, want 50000", cfg.BatchSize)
	}
	if cfg.HighValue.String() != "10000" {
		t.Errorf("HighValue = %s, want 10000", cfg.HighValue)
	}
	if cfg.FraudScoreThreshold != 0.75 {
		t.Errorf("FraudScoreThreshold = %v, want 0.75", cfg.FraudScoreThreshold)
	}
	if cfg.DuplicateWindowMinutes != 5 {
		t.Errorf("DuplicateWindowMinutes = %d, want 5", cfg.DuplicateWindowMinutes)
	}
	if cfg.OFACMatchThreshold != 0.85 {
		t.Errorf("OFACMatchThreshold = %v, want 0.85", cfg.OFACMatchThreshold)
	}
	if cfg.Structuring.WindowDays != 7 || cfg.Structuring.MinCount != 3 {
		t.Errorf("Structuring defaults = %+v", cfg.Structuring)
	}

	flags := cfg.Flags()
	if !flags.Fraud || !flags.Compliance || !flags.Archiving {
		t.Errorf("omitted feature flags should default to enabled, got %+v", flags)
	}
}

func TestLoad_ExplicitFlagsOff(t *testing.T) {
	path := writeConfig(t, `
processing_date: "2026-08-28"
features:
  fraud: false
  compliance: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	flags := cfg.Flags()
	if flags.Fraud || flags.Compliance {
		t.Errorf("explicit false flags not honored: %+v", flags)
	}
	if !flags.Archiving {
		t.Errorf("omitted archiving flag should stay enabled")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing date", "batch_size: 10\n"},
		{"bad date", "processing_date: \"28/08/2026\"\n"},
		{"bad threshold", "processing_date: \"2026-08-28\"\nfraud_score_threshold: 1.5\n"},
		{"bad amount", "processing_date: \"2026-08-28\"\nhigh_value_threshold: \"lots\"\n"},
		{"inverted band", "processing_date: \"2026-08-28\"\nstructuring:\n  low_amount: \"9999.99\"\n  high_amount: \"9000.00\"\n"},
		{"bad scorer", "processing_date: \"2026-08-28\"\nscorer:\n  mode: \"coinflip\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, domain.ErrConfigurationInvalid) {
				t.Errorf("error %v is not ErrConfigurationInvalid", err)
			}
		})
	}
}
