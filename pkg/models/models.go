package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentChannel represents a payment channel supported by the platform
type PaymentChannel string

const (
	ChannelBkash          PaymentChannel = "bkash"
	ChannelNagad          PaymentChannel = "nagad"
	ChannelRocket         PaymentChannel = "rocket"
	ChannelCard           PaymentChannel = "card"
	ChannelCashOnDelivery PaymentChannel = "cash_on_delivery"
	ChannelBankTransfer   PaymentChannel = "bank_transfer"
)

// AllChannels returns every supported payment channel
func AllChannels() []PaymentChannel {
	return []PaymentChannel{
		ChannelBkash,
		ChannelNagad,
		ChannelRocket,
		ChannelCard,
		ChannelCashOnDelivery,
		ChannelBankTransfer,
	}
}

// Valid reports whether the channel is one of the supported values
func (c PaymentChannel) Valid() bool {
	switch c {
	case ChannelBkash, ChannelNagad, ChannelRocket,
		ChannelCard, ChannelCashOnDelivery, ChannelBankTransfer:
		return true
	}
	return false
}

// VerificationStatus represents the identity verification state of a user
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// RiskLevel represents a discrete fraud risk bucket
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// GeoPoint is a latitude/longitude pair
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DeviceInfo describes the device that originated a transaction
type DeviceInfo struct {
	DeviceID   string    `json:"device_id"`
	UserAgent  string    `json:"user_agent"`
	IPAddress  string    `json:"ip_address"`
	IPLocation *GeoPoint `json:"ip_location,omitempty"`
}

// DeliveryAddress is the destination of a transaction
type DeliveryAddress struct {
	Country  string    `json:"country"`
	Region   string    `json:"region"`
	District string    `json:"district"`
	Location *GeoPoint `json:"location,omitempty"`
}

// TransactionContext carries contextual signals attached to a transaction
type TransactionContext struct {
	LocalTimeZone  string  `json:"local_timezone,omitempty"`
	ActiveEvent    string  `json:"active_event,omitempty"` // festival or cultural event name
	EconomicFactor float64 `json:"economic_factor,omitempty"`
}

// Transaction represents a payment transaction. Immutable once created.
type Transaction struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Amount      decimal.Decimal     `json:"amount"`
	Timestamp   time.Time           `json:"timestamp"`
	Channel     PaymentChannel      `json:"channel"`
	Device      *DeviceInfo         `json:"device,omitempty"`
	Destination *DeliveryAddress    `json:"destination,omitempty"`
	Context     *TransactionContext `json:"context,omitempty"`
}

// Hour returns the local hour of day of the transaction. When the context
// names a time zone that can be loaded, the timestamp is converted first;
// otherwise the timestamp's own location is used.
func (t *Transaction) Hour() int {
	ts := t.Timestamp
	if t.Context != nil && t.Context.LocalTimeZone != "" {
		if loc, err := time.LoadLocation(t.Context.LocalTimeZone); err == nil {
			ts = ts.In(loc)
		}
	}
	return ts.Hour()
}

// User represents a platform user. The scoring engine treats it as
// read-only input; only the owning account system mutates it.
type User struct {
	ID                 string             `json:"id"`
	RegisteredAt       time.Time          `json:"registered_at"`
	Verification       VerificationStatus `json:"verification"`
	MobileVerified     bool               `json:"mobile_verified"`
	NationalIDVerified bool               `json:"national_id_verified"`
	Region             string             `json:"region,omitempty"`
	History            []*Transaction     `json:"history,omitempty"`
}

// LocationCluster is a group of nearby historical transaction locations
type LocationCluster struct {
	Center     GeoPoint `json:"center"`
	PointCount int      `json:"point_count"`
}

// VelocityPattern holds the maximum observed transaction counts inside
// sliding time windows
type VelocityPattern struct {
	MaxHourly int `json:"max_hourly"`
	MaxDaily  int `json:"max_daily"`
	MaxWeekly int `json:"max_weekly"`
}

// UserBehaviorProfile is a per-user statistical baseline. It is rebuilt
// wholesale on every training run and never partially mutated.
type UserBehaviorProfile struct {
	UserID             string                     `json:"user_id"`
	TransactionCount   int                        `json:"transaction_count"`
	AvgAmount          float64                    `json:"avg_amount"`
	StdDevAmount       float64                    `json:"stddev_amount"`
	PreferredHours     []int                      `json:"preferred_hours"`
	PreferredChannels  []PaymentChannel           `json:"preferred_channels"`
	CommonLocations    []LocationCluster          `json:"common_locations"`
	Velocity           VelocityPattern            `json:"velocity"`
	AvgAmountByChannel map[PaymentChannel]float64 `json:"avg_amount_by_channel"`
	FallbackChannel    PaymentChannel             `json:"fallback_channel,omitempty"`
}

// Degenerate reports whether the profile carries no usable history
func (p *UserBehaviorProfile) Degenerate() bool {
	return p == nil || p.TransactionCount == 0
}

// PrefersHour reports whether the hour is one of the user's preferred hours
func (p *UserBehaviorProfile) PrefersHour(hour int) bool {
	if p == nil {
		return false
	}
	for _, h := range p.PreferredHours {
		if h == hour {
			return true
		}
	}
	return false
}

// PrefersChannel reports whether the channel is one of the user's
// preferred channels
func (p *UserBehaviorProfile) PrefersChannel(c PaymentChannel) bool {
	if p == nil {
		return false
	}
	for _, ch := range p.PreferredChannels {
		if ch == c {
			return true
		}
	}
	return false
}

// AmountPercentile is one rung of the corpus-wide amount percentile ladder
type AmountPercentile struct {
	Percentile int     `json:"percentile"`
	Value      float64 `json:"value"`
}

// GlobalStatistics is the corpus-wide baseline used when a personalized
// profile is unavailable
type GlobalStatistics struct {
	TransactionCount int                    `json:"transaction_count"`
	AmountLadder     []AmountPercentile     `json:"amount_ladder"`
	HourHistogram    [24]int                `json:"hour_histogram"`
	ChannelHistogram map[PaymentChannel]int `json:"channel_histogram"`
}

// PercentileValue returns the ladder value at the given percentile and
// whether the ladder contains it
func (g *GlobalStatistics) PercentileValue(p int) (float64, bool) {
	if g == nil {
		return 0, false
	}
	for _, rung := range g.AmountLadder {
		if rung.Percentile == p {
			return rung.Value, true
		}
	}
	return 0, false
}

// FraudFeatureVector holds the 13 named scalar features. Each lies in
// [0,1]; CulturalContextRisk carries a negative weight downstream and acts
// as a small score reduction.
type FraudFeatureVector struct {
	AmountAnomaly            float64 `json:"amount_anomaly"`
	TimeAnomaly              float64 `json:"time_anomaly"`
	LocationAnomaly          float64 `json:"location_anomaly"`
	PaymentMethodAnomaly     float64 `json:"payment_method_anomaly"`
	VelocityScore            float64 `json:"velocity_score"`
	PatternDeviationScore    float64 `json:"pattern_deviation_score"`
	AccountAgeRisk           float64 `json:"account_age_risk"`
	DeviceRisk               float64 `json:"device_risk"`
	IPRisk                   float64 `json:"ip_risk"`
	ChannelAmountRisk        float64 `json:"channel_amount_risk"`
	GeographicRisk           float64 `json:"geographic_risk"`
	CulturalContextRisk      float64 `json:"cultural_context_risk"`
	IdentityVerificationRisk float64 `json:"identity_verification_risk"`
}

// ContextualRiskSummary summarizes the contextual components of a score
type ContextualRiskSummary struct {
	ChannelRisk     float64 `json:"channel_risk"`
	RegionRisk      float64 `json:"region_risk"`
	TimeContextRisk float64 `json:"time_context_risk"`
	CulturalRisk    float64 `json:"cultural_risk"`
}

// FraudResult is the outcome of scoring one transaction. Created fresh per
// call and never persisted by the engine.
type FraudResult struct {
	TransactionID   string                `json:"transaction_id"`
	FraudScore      float64               `json:"fraud_score"`
	RiskLevel       RiskLevel             `json:"risk_level"`
	Confidence      float64               `json:"confidence"`
	Reasons         []string              `json:"reasons"`
	Features        FraudFeatureVector    `json:"features"`
	ContextualRisk  ContextualRiskSummary `json:"contextual_risk"`
	Recommendations []string              `json:"recommendations"`
	EvaluatedAt     time.Time             `json:"evaluated_at"`
}

// StatisticsSummary is a condensed view of the global statistics for
// operational dashboards
type StatisticsSummary struct {
	TransactionCount int     `json:"transaction_count"`
	MedianAmount     float64 `json:"median_amount"`
	P95Amount        float64 `json:"p95_amount"`
	BusiestHour      int     `json:"busiest_hour"`
}

// RiskTableSizes reports how many entries each risk table holds
type RiskTableSizes struct {
	Channels int `json:"channels"`
	Regions  int `json:"regions"`
}

// LevelThresholds are the score cutoffs for each risk level
type LevelThresholds struct {
	Critical float64 `json:"critical"`
	High     float64 `json:"high"`
	Medium   float64 `json:"medium"`
}

// ModelMetrics is the read-only introspection surface of the engine
type ModelMetrics struct {
	Trained        bool              `json:"trained"`
	TrainedAt      *time.Time        `json:"trained_at,omitempty"`
	ProfileCount   int               `json:"profile_count"`
	Statistics     StatisticsSummary `json:"statistics"`
	RiskTableSizes RiskTableSizes    `json:"risk_table_sizes"`
	Thresholds     LevelThresholds   `json:"thresholds"`
}
