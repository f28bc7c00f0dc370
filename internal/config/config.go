package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for PayGuard
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Profiles ProfilesConfig `yaml:"profiles"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

// ScoringConfig holds the scoring constants. Weights and thresholds are
// fixed design constants surfaced here so they can be tuned and tested
// independently of the scoring control flow.
type ScoringConfig struct {
	Weights      FeatureWeights  `yaml:"weights"`
	Thresholds   LevelThresholds `yaml:"thresholds"`
	HistoryLimit int             `yaml:"history_limit"`
}

// FeatureWeights are the per-feature contributions to the fraud score
type FeatureWeights struct {
	AmountAnomaly            float64 `yaml:"amount_anomaly"`
	TimeAnomaly              float64 `yaml:"time_anomaly"`
	LocationAnomaly          float64 `yaml:"location_anomaly"`
	PaymentMethodAnomaly     float64 `yaml:"payment_method_anomaly"`
	VelocityScore            float64 `yaml:"velocity_score"`
	PatternDeviationScore    float64 `yaml:"pattern_deviation_score"`
	AccountAgeRisk           float64 `yaml:"account_age_risk"`
	DeviceRisk               float64 `yaml:"device_risk"`
	IPRisk                   float64 `yaml:"ip_risk"`
	ChannelAmountRisk        float64 `yaml:"channel_amount_risk"`
	GeographicRisk           float64 `yaml:"geographic_risk"`
	CulturalContextRisk      float64 `yaml:"cultural_context_risk"`
	IdentityVerificationRisk float64 `yaml:"identity_verification_risk"`
}

// LevelThresholds are the score cutoffs for each risk level. They must be
// strictly decreasing: critical > high > medium.
type LevelThresholds struct {
	Critical float64 `yaml:"critical"`
	High     float64 `yaml:"high"`
	Medium   float64 `yaml:"medium"`
}

// ProfilesConfig holds profile-building configuration
type ProfilesConfig struct {
	ClusterRadiusDegrees   float64 `yaml:"cluster_radius_degrees"`
	MinChannelObservations int     `yaml:"min_channel_observations"`
	MaxChannelRisk         float64 `yaml:"max_channel_risk"`
	HighRiskAmount         float64 `yaml:"high_risk_amount"`
	DayStartHour           int     `yaml:"day_start_hour"`
	DayEndHour             int     `yaml:"day_end_hour"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 3007),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Scoring: ScoringConfig{
			Weights: FeatureWeights{
				AmountAnomaly:            0.15,
				TimeAnomaly:              0.10,
				LocationAnomaly:          0.15,
				PaymentMethodAnomaly:     0.10,
				VelocityScore:            0.15,
				PatternDeviationScore:    0.10,
				AccountAgeRisk:           0.08,
				DeviceRisk:               0.05,
				IPRisk:                   0.05,
				ChannelAmountRisk:        0.15,
				GeographicRisk:           0.10,
				CulturalContextRisk:      -0.05,
				IdentityVerificationRisk: 0.12,
			},
			Thresholds: LevelThresholds{
				Critical: 0.9,
				High:     0.7,
				Medium:   0.5,
			},
			HistoryLimit: getEnvInt("SCORING_HISTORY_LIMIT", 1000),
		},
		Profiles: ProfilesConfig{
			ClusterRadiusDegrees:   0.1,
			MinChannelObservations: 50,
			MaxChannelRisk:         0.8,
			HighRiskAmount:         100000,
			DayStartHour:           5,
			DayEndHour:             23,
		},
	}
}

// Validate checks config invariants
func (c *Config) Validate() error {
	t := c.Scoring.Thresholds
	if !(t.Critical > t.High && t.High > t.Medium) {
		return fmt.Errorf("level thresholds must be strictly decreasing: critical=%v high=%v medium=%v",
			t.Critical, t.High, t.Medium)
	}
	if t.Medium <= 0 || t.Critical > 1 {
		return fmt.Errorf("level thresholds must lie in (0,1]: critical=%v medium=%v", t.Critical, t.Medium)
	}

	weights := []float64{
		c.Scoring.Weights.AmountAnomaly,
		c.Scoring.Weights.TimeAnomaly,
		c.Scoring.Weights.LocationAnomaly,
		c.Scoring.Weights.PaymentMethodAnomaly,
		c.Scoring.Weights.VelocityScore,
		c.Scoring.Weights.PatternDeviationScore,
		c.Scoring.Weights.AccountAgeRisk,
		c.Scoring.Weights.DeviceRisk,
		c.Scoring.Weights.IPRisk,
		c.Scoring.Weights.ChannelAmountRisk,
		c.Scoring.Weights.GeographicRisk,
		c.Scoring.Weights.CulturalContextRisk,
		c.Scoring.Weights.IdentityVerificationRisk,
	}
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("feature weights must be finite")
		}
	}

	if c.Profiles.ClusterRadiusDegrees <= 0 {
		return fmt.Errorf("cluster radius must be positive, got %v", c.Profiles.ClusterRadiusDegrees)
	}
	if c.Profiles.MinChannelObservations < 1 {
		return fmt.Errorf("min channel observations must be at least 1, got %d", c.Profiles.MinChannelObservations)
	}
	if c.Profiles.MaxChannelRisk <= 0 || c.Profiles.MaxChannelRisk > 0.8 {
		return fmt.Errorf("max channel risk must lie in (0,0.8], got %v", c.Profiles.MaxChannelRisk)
	}
	if c.Profiles.DayStartHour < 0 || c.Profiles.DayEndHour > 24 ||
		c.Profiles.DayStartHour >= c.Profiles.DayEndHour {
		return fmt.Errorf("day hour band [%d,%d) is invalid", c.Profiles.DayStartHour, c.Profiles.DayEndHour)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
