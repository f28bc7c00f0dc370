package scoring

import (
	"math"

	"github.com/savegress/payguard/internal/config"
	"github.com/savegress/payguard/pkg/models"
)

// Scorer reduces a feature vector to a bounded fraud score, a discrete
// risk level and a confidence estimate
type Scorer struct {
	weights    config.FeatureWeights
	thresholds config.LevelThresholds
}

// NewScorer creates a scorer with the given weights and thresholds
func NewScorer(weights config.FeatureWeights, thresholds config.LevelThresholds) *Scorer {
	return &Scorer{weights: weights, thresholds: thresholds}
}

// Score computes the weighted sum of all features, clamped to [0,1]
func (s *Scorer) Score(f models.FraudFeatureVector) float64 {
	sum := f.AmountAnomaly*s.weights.AmountAnomaly +
		f.TimeAnomaly*s.weights.TimeAnomaly +
		f.LocationAnomaly*s.weights.LocationAnomaly +
		f.PaymentMethodAnomaly*s.weights.PaymentMethodAnomaly +
		f.VelocityScore*s.weights.VelocityScore +
		f.PatternDeviationScore*s.weights.PatternDeviationScore +
		f.AccountAgeRisk*s.weights.AccountAgeRisk +
		f.DeviceRisk*s.weights.DeviceRisk +
		f.IPRisk*s.weights.IPRisk +
		f.ChannelAmountRisk*s.weights.ChannelAmountRisk +
		f.GeographicRisk*s.weights.GeographicRisk +
		f.CulturalContextRisk*s.weights.CulturalContextRisk +
		f.IdentityVerificationRisk*s.weights.IdentityVerificationRisk

	return math.Max(0, math.Min(1, sum))
}

// Level maps a fraud score to its discrete risk level
func (s *Scorer) Level(score float64) models.RiskLevel {
	switch {
	case score >= s.thresholds.Critical:
		return models.RiskLevelCritical
	case score >= s.thresholds.High:
		return models.RiskLevelHigh
	case score >= s.thresholds.Medium:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// Thresholds returns the level cutoffs in model form
func (s *Scorer) Thresholds() models.LevelThresholds {
	return models.LevelThresholds{
		Critical: s.thresholds.Critical,
		High:     s.thresholds.High,
		Medium:   s.thresholds.Medium,
	}
}

// Confidence estimates how much the score can be trusted: more history and
// stronger identity verification raise it, extreme anomalies against a
// thin baseline lower it. Clamped to [0.1, 1].
func (s *Scorer) Confidence(f models.FraudFeatureVector, user *models.User, prof *models.UserBehaviorProfile) float64 {
	confidence := 0.5

	historyCount := len(user.History)
	if !prof.Degenerate() {
		historyCount = prof.TransactionCount
	}
	if historyCount > 10 {
		confidence += 0.2
	}
	if historyCount > 50 {
		confidence += 0.1
	}

	if user.Verification == models.VerificationVerified {
		confidence += 0.1
	}
	if user.NationalIDVerified {
		confidence += 0.05
	}
	if user.MobileVerified {
		confidence += 0.05
	}

	if f.AmountAnomaly > 0.8 {
		confidence -= 0.1
	}
	if f.LocationAnomaly > 0.8 {
		confidence -= 0.1
	}

	return math.Max(0.1, math.Min(1, confidence))
}
