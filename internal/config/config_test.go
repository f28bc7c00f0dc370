package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 3007 {
		t.Errorf("expected default port 3007, got %d", cfg.Server.Port)
	}
	if cfg.Scoring.Thresholds.Critical != 0.9 || cfg.Scoring.Thresholds.High != 0.7 || cfg.Scoring.Thresholds.Medium != 0.5 {
		t.Errorf("unexpected default thresholds %+v", cfg.Scoring.Thresholds)
	}
	if cfg.Scoring.HistoryLimit != 1000 {
		t.Errorf("expected default history limit 1000, got %d", cfg.Scoring.HistoryLimit)
	}
	if cfg.Profiles.ClusterRadiusDegrees != 0.1 {
		t.Errorf("expected cluster radius 0.1, got %f", cfg.Profiles.ClusterRadiusDegrees)
	}
	if cfg.Profiles.MinChannelObservations != 50 {
		t.Errorf("expected 50 minimum observations, got %d", cfg.Profiles.MinChannelObservations)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestDefault_WeightsSignConvention(t *testing.T) {
	w := Default().Scoring.Weights

	// cultural context is the single protective feature
	if w.CulturalContextRisk >= 0 {
		t.Errorf("expected a negative cultural context weight, got %f", w.CulturalContextRisk)
	}
	for name, v := range map[string]float64{
		"amount":   w.AmountAnomaly,
		"time":     w.TimeAnomaly,
		"location": w.LocationAnomaly,
		"payment":  w.PaymentMethodAnomaly,
		"velocity": w.VelocityScore,
		"pattern":  w.PatternDeviationScore,
		"age":      w.AccountAgeRisk,
		"device":   w.DeviceRisk,
		"ip":       w.IPRisk,
		"channel":  w.ChannelAmountRisk,
		"geo":      w.GeographicRisk,
		"identity": w.IdentityVerificationRisk,
	} {
		if v <= 0 {
			t.Errorf("expected positive weight for %s, got %f", name, v)
		}
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"thresholds not decreasing", func(c *Config) { c.Scoring.Thresholds.High = 0.95 }},
		{"equal thresholds", func(c *Config) { c.Scoring.Thresholds.High = 0.9 }},
		{"zero medium threshold", func(c *Config) {
			c.Scoring.Thresholds.Medium = 0
			c.Scoring.Thresholds.High = 0.1
			c.Scoring.Thresholds.Critical = 0.2
		}},
		{"critical above one", func(c *Config) { c.Scoring.Thresholds.Critical = 1.5 }},
		{"zero cluster radius", func(c *Config) { c.Profiles.ClusterRadiusDegrees = 0 }},
		{"zero observation floor", func(c *Config) { c.Profiles.MinChannelObservations = 0 }},
		{"channel risk cap too high", func(c *Config) { c.Profiles.MaxChannelRisk = 0.9 }},
		{"inverted day band", func(c *Config) {
			c.Profiles.DayStartHour = 23
			c.Profiles.DayEndHour = 5
		}},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 8080
  environment: production
scoring:
  thresholds:
    critical: 0.95
    high: 0.75
    medium: 0.55
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Scoring.Thresholds.Critical != 0.95 {
		t.Errorf("expected overridden critical threshold, got %f", cfg.Scoring.Thresholds.Critical)
	}
	// untouched sections keep defaults
	if cfg.Profiles.MinChannelObservations != 50 {
		t.Errorf("expected default observation floor, got %d", cfg.Profiles.MinChannelObservations)
	}
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("PAYGUARD_TEST_ENV", "staging")
	content := `
server:
  environment: ${PAYGUARD_TEST_ENV}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Environment != "staging" {
		t.Errorf("expected expanded environment, got %q", cfg.Server.Environment)
	}
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
scoring:
  thresholds:
    critical: 0.5
    high: 0.7
    medium: 0.9
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected inverted thresholds to be rejected")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
