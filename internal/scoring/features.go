package scoring

import (
	"math"
	"time"

	"github.com/savegress/payguard/internal/geo"
	"github.com/savegress/payguard/internal/profile"
	"github.com/savegress/payguard/pkg/models"
)

// neutralRisk is the fallback feature value when a baseline is unavailable
// or a ratio would divide by an empty set
const neutralRisk = 0.5

// IPReputation reports whether a source address looks like a proxy or VPN
// exit. Implementations must be fast and fail open: when a lookup cannot
// complete it should return false rather than stall the scoring path.
type IPReputation interface {
	IsProxy(ip string) bool
}

// noReputation is the default IPReputation; it flags nothing
type noReputation struct{}

func (noReputation) IsProxy(string) bool { return false }

// Extractor computes the feature vector for one transaction. All features
// are pure functions of the transaction, the user and the published
// snapshot, so concurrent extraction needs no locking.
type Extractor struct {
	ipRep IPReputation
}

// NewExtractor creates a feature extractor
func NewExtractor(ipRep IPReputation) *Extractor {
	if ipRep == nil {
		ipRep = noReputation{}
	}
	return &Extractor{ipRep: ipRep}
}

// Extract computes all 13 features. prof may be nil or degenerate for new
// users; every feature then falls back to global or fixed baselines.
func (e *Extractor) Extract(txn *models.Transaction, user *models.User, prof *models.UserBehaviorProfile, snap *Snapshot) models.FraudFeatureVector {
	if prof.Degenerate() {
		prof = nil
	}

	amount := txn.Amount.InexactFloat64()
	hour := txn.Hour()

	return models.FraudFeatureVector{
		AmountAnomaly:            amountAnomaly(amount, prof, snap.Statistics),
		TimeAnomaly:              timeAnomaly(hour, prof, snap.Statistics),
		LocationAnomaly:          locationAnomaly(txn, prof),
		PaymentMethodAnomaly:     paymentMethodAnomaly(txn.Channel, prof, snap.ChannelRisk),
		VelocityScore:            velocityScore(user, txn),
		PatternDeviationScore:    patternDeviation(amount, hour, prof),
		AccountAgeRisk:           accountAgeRisk(user.RegisteredAt, txn.Timestamp),
		DeviceRisk:               e.deviceRisk(txn.Device),
		IPRisk:                   ipDistanceRisk(txn),
		ChannelAmountRisk:        channelAmountRisk(txn.Channel, amount, snap.ChannelRisk),
		GeographicRisk:           geographicRisk(txn, snap.RegionRisk),
		CulturalContextRisk:      culturalContextRisk(txn.Context),
		IdentityVerificationRisk: identityRisk(user),
	}
}

// amountAnomaly is a clamped z-score against the user's own baseline, or a
// bucketed comparison against the global percentile ladder for new users
func amountAnomaly(amount float64, prof *models.UserBehaviorProfile, stats *models.GlobalStatistics) float64 {
	if prof != nil {
		z := math.Abs(amount-prof.AvgAmount) / math.Max(prof.StdDevAmount, 1000)
		return clamp01(z / 3)
	}

	p99, ok99 := stats.PercentileValue(99)
	p95, ok95 := stats.PercentileValue(95)
	p75, ok75 := stats.PercentileValue(75)
	if !ok99 || !ok95 || !ok75 {
		// no baseline available
		return neutralRisk
	}

	switch {
	case amount > p99:
		return 0.9
	case amount > p95:
		return 0.7
	case amount > p75:
		return 0.4
	default:
		return 0.1
	}
}

// timeBandRisk assigns fixed priors to the hour bands of a Bangladeshi
// commerce day: late night, early morning, working hours, evening
func timeBandRisk(hour int) float64 {
	switch {
	case hour >= 23 || hour < 5:
		return 0.8
	case hour < 9:
		return 0.4
	case hour < 18:
		return 0.1
	default:
		return 0.2
	}
}

func timeAnomaly(hour int, prof *models.UserBehaviorProfile, stats *models.GlobalStatistics) float64 {
	if prof.PrefersHour(hour) {
		return 0.1
	}

	maxHourly := 0
	for _, count := range stats.HourHistogram {
		if count > maxHourly {
			maxHourly = count
		}
	}

	freqRisk := neutralRisk
	if maxHourly > 0 {
		freqRisk = 1 - float64(stats.HourHistogram[hour])/float64(maxHourly)
	}

	return math.Max(freqRisk, timeBandRisk(hour))
}

func locationAnomaly(txn *models.Transaction, prof *models.UserBehaviorProfile) float64 {
	if txn.Destination == nil || txn.Destination.Location == nil {
		// missing coordinates are maximally anomalous rather than an error
		return 0.9
	}
	dest := *txn.Destination.Location

	if prof != nil && len(prof.CommonLocations) > 0 {
		nearest := math.MaxFloat64
		for _, cluster := range prof.CommonLocations {
			if d := geo.Distance(cluster.Center, dest); d < nearest {
				nearest = d
			}
		}
		switch {
		case nearest > 100:
			return 0.9
		case nearest > 50:
			return 0.6
		case nearest > 20:
			return 0.3
		default:
			return 0.1
		}
	}

	if !geo.InBangladesh(dest) {
		return 0.8
	}
	return 0.2
}

func paymentMethodAnomaly(channel models.PaymentChannel, prof *models.UserBehaviorProfile, channelRisk map[models.PaymentChannel]float64) float64 {
	if prof.PrefersChannel(channel) {
		return 0.1
	}
	if risk, ok := channelRisk[channel]; ok {
		return risk
	}
	return neutralRisk
}

func velocityScore(user *models.User, txn *models.Transaction) float64 {
	recent := profile.CountRecent(user.History, txn.Timestamp, time.Hour)
	switch {
	case recent > 10:
		return 0.9
	case recent > 5:
		return 0.6
	case recent > 2:
		return 0.3
	default:
		return 0.1
	}
}

func patternDeviation(amount float64, hour int, prof *models.UserBehaviorProfile) float64 {
	if prof == nil {
		return neutralRisk
	}

	amountDev := neutralRisk
	if prof.AvgAmount > 0 {
		amountDev = clamp01(math.Abs(amount-prof.AvgAmount) / prof.AvgAmount)
	}

	hourDev := 0.5
	if prof.PrefersHour(hour) {
		hourDev = 0
	}

	return (amountDev + hourDev) / 2
}

func accountAgeRisk(registeredAt, at time.Time) float64 {
	days := at.Sub(registeredAt).Hours() / 24
	switch {
	case days < 1:
		return 0.9
	case days < 7:
		return 0.7
	case days < 30:
		return 0.4
	case days < 90:
		return 0.2
	default:
		return 0.1
	}
}

// minUserAgentLength is the shortest user-agent string that does not look
// like a stripped or spoofed client
const minUserAgentLength = 16

func (e *Extractor) deviceRisk(device *models.DeviceInfo) float64 {
	risk := 0.0
	if device == nil || len(device.UserAgent) < minUserAgentLength {
		risk += 0.3
	}
	if device != nil && device.IPAddress != "" && e.ipRep.IsProxy(device.IPAddress) {
		risk += 0.4
	}
	return clamp01(risk)
}

func ipDistanceRisk(txn *models.Transaction) float64 {
	if txn.Device == nil || txn.Device.IPLocation == nil ||
		txn.Destination == nil || txn.Destination.Location == nil {
		return 0.1
	}

	dist := geo.Distance(*txn.Device.IPLocation, *txn.Destination.Location)
	switch {
	case dist > 1000:
		return 0.8
	case dist > 500:
		return 0.5
	case dist > 100:
		return 0.2
	default:
		return 0.1
	}
}

// channelAmountRisk escalates cash-on-delivery with large amounts; other
// channels carry their table risk
func channelAmountRisk(channel models.PaymentChannel, amount float64, channelRisk map[models.PaymentChannel]float64) float64 {
	if channel == models.ChannelCashOnDelivery {
		if amount > 50000 {
			return 0.7
		}
		if amount > 20000 {
			return 0.4
		}
	}
	if risk, ok := channelRisk[channel]; ok {
		return risk
	}
	return 0.2
}

func geographicRisk(txn *models.Transaction, regionRisk map[string]float64) float64 {
	region := ""
	if txn.Destination != nil {
		if txn.Destination.Location != nil {
			region = geo.NearestDivision(*txn.Destination.Location)
		}
		if region == "" {
			region = txn.Destination.Region
		}
	}
	if risk, ok := regionRisk[region]; ok {
		return risk
	}
	return 0.3
}

// culturalContextRisk is lower during flagged festival periods, when
// elevated spending is expected rather than suspicious
func culturalContextRisk(ctx *models.TransactionContext) float64 {
	if ctx != nil && ctx.ActiveEvent != "" {
		return 0.1
	}
	return 0.2
}

func identityRisk(user *models.User) float64 {
	risk := 0.0
	switch user.Verification {
	case models.VerificationPending:
		risk += 0.4
	case models.VerificationRejected:
		risk += 0.8
	}
	if !user.NationalIDVerified {
		risk += 0.3
	}
	if !user.MobileVerified {
		risk += 0.2
	}
	return clamp01(risk)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
