package scoring

import (
	"github.com/savegress/payguard/pkg/models"
)

// reasonThreshold is the feature value above which a reason is reported
const reasonThreshold = 0.5

// maxReasons bounds the reason list in a FraudResult
const maxReasons = 5

// reasonEntry pairs a feature selector with its human-readable explanation.
// Order is the fixed reporting priority.
type reasonEntry struct {
	value func(models.FraudFeatureVector) float64
	text  string
}

var reasonTable = []reasonEntry{
	{func(f models.FraudFeatureVector) float64 { return f.AmountAnomaly },
		"Transaction amount is far outside the expected range for this user"},
	{func(f models.FraudFeatureVector) float64 { return f.TimeAnomaly },
		"Transaction occurred at an unusual hour for this user"},
	{func(f models.FraudFeatureVector) float64 { return f.LocationAnomaly },
		"Delivery destination is far from the user's common locations"},
	{func(f models.FraudFeatureVector) float64 { return f.VelocityScore },
		"Rapid sequence of transactions in the last hour"},
	{func(f models.FraudFeatureVector) float64 { return f.AccountAgeRisk },
		"Account was registered very recently"},
	{func(f models.FraudFeatureVector) float64 { return maxFloat(f.PaymentMethodAnomaly, f.ChannelAmountRisk) },
		"Payment channel is unusual or high-risk for this amount"},
	{func(f models.FraudFeatureVector) float64 { return f.GeographicRisk },
		"Destination region carries elevated fraud risk"},
	{func(f models.FraudFeatureVector) float64 { return f.IdentityVerificationRisk },
		"User identity is not fully verified"},
	{func(f models.FraudFeatureVector) float64 { return f.DeviceRisk },
		"Originating device looks suspicious"},
	{func(f models.FraudFeatureVector) float64 { return f.IPRisk },
		"Source IP location is far from the delivery destination"},
}

// BuildReasons selects up to five explanations for features exceeding the
// reporting threshold, in fixed priority order
func BuildReasons(f models.FraudFeatureVector) []string {
	reasons := make([]string, 0, maxReasons)
	for _, entry := range reasonTable {
		if entry.value(f) > reasonThreshold {
			reasons = append(reasons, entry.text)
			if len(reasons) == maxReasons {
				break
			}
		}
	}
	return reasons
}

// BuildRecommendations produces the action list for a risk level. This is
// a fixed decision table, not a learned policy.
func BuildRecommendations(level models.RiskLevel, f models.FraudFeatureVector) []string {
	switch level {
	case models.RiskLevelCritical:
		return []string{
			"Block the transaction immediately",
			"Escalate to manual fraud review",
			"Contact the user through a verified channel",
		}
	case models.RiskLevelHigh:
		recs := []string{
			"Hold the transaction pending review",
			"Require additional authentication before release",
		}
		if f.IdentityVerificationRisk > reasonThreshold {
			recs = append(recs, "Ask the user to complete identity verification")
		}
		return recs
	case models.RiskLevelMedium:
		recs := []string{"Monitor account activity closely"}
		if f.VelocityScore > reasonThreshold {
			recs = append(recs, "Apply temporary velocity limits to the account")
		}
		if f.LocationAnomaly > reasonThreshold {
			recs = append(recs, "Confirm the delivery address with the user")
		}
		if f.DeviceRisk > reasonThreshold {
			recs = append(recs, "Verify the device with a one-time passcode")
		}
		return recs
	default:
		return []string{
			"Process normally",
			"Log for pattern analysis",
		}
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
