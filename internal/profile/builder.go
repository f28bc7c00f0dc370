package profile

import (
	"math"
	"sort"

	"github.com/savegress/payguard/internal/config"
	"github.com/savegress/payguard/internal/geo"
	"github.com/savegress/payguard/pkg/models"
)

// ChannelPriors returns the seed risk values per payment channel. Values
// stay within [0, 0.8].
func ChannelPriors() map[models.PaymentChannel]float64 {
	return map[models.PaymentChannel]float64{
		models.ChannelBkash:          0.20,
		models.ChannelNagad:          0.20,
		models.ChannelRocket:         0.25,
		models.ChannelCard:           0.15,
		models.ChannelCashOnDelivery: 0.40,
		models.ChannelBankTransfer:   0.10,
	}
}

// RegionPriors returns the static risk values per division. Values stay
// within [0, 1]. Region priors do not adapt at train time; only channel
// priors do.
func RegionPriors() map[string]float64 {
	return map[string]float64{
		"dhaka":      0.15,
		"chattogram": 0.20,
		"khulna":     0.25,
		"rajshahi":   0.25,
		"sylhet":     0.20,
		"barishal":   0.30,
		"rangpur":    0.35,
		"mymensingh": 0.30,
	}
}

// Builder turns users and their transaction history into behavioral
// profiles and global baselines
type Builder struct {
	cfg       config.ProfilesConfig
	clusterer *geo.Clusterer
}

// NewBuilder creates a profile builder
func NewBuilder(cfg config.ProfilesConfig) *Builder {
	return &Builder{
		cfg:       cfg,
		clusterer: geo.NewClusterer(cfg.ClusterRadiusDegrees),
	}
}

// BuildResult is one complete, immutable training output
type BuildResult struct {
	Profiles    map[string]*models.UserBehaviorProfile
	Statistics  *models.GlobalStatistics
	ChannelRisk map[models.PaymentChannel]float64
	RegionRisk  map[string]float64
}

// Build constructs profiles for every user plus corpus-wide statistics and
// risk tables. It never fails: nil corpus entries are skipped, users
// without history get a degenerate profile and an empty corpus yields
// empty baselines.
func (b *Builder) Build(users []*models.User, txns []*models.Transaction) *BuildResult {
	txns = dropNil(txns)

	byUser := make(map[string][]*models.Transaction)
	for _, txn := range txns {
		byUser[txn.UserID] = append(byUser[txn.UserID], txn)
	}

	profiles := make(map[string]*models.UserBehaviorProfile, len(users))
	for _, user := range users {
		if user == nil {
			continue
		}
		history := dropNil(user.History)
		if len(history) == 0 {
			history = byUser[user.ID]
		}
		profiles[user.ID] = b.buildProfile(user.ID, history)
	}

	return &BuildResult{
		Profiles:    profiles,
		Statistics:  AggregateStatistics(txns),
		ChannelRisk: b.adjustChannelRisk(txns),
		RegionRisk:  RegionPriors(),
	}
}

func (b *Builder) buildProfile(userID string, history []*models.Transaction) *models.UserBehaviorProfile {
	if len(history) == 0 {
		// Degenerate profile: no history to learn from, so scoring falls
		// back to global baselines and the platform's dominant channel.
		return &models.UserBehaviorProfile{
			UserID:             userID,
			AvgAmountByChannel: make(map[models.PaymentChannel]float64),
			FallbackChannel:    models.ChannelCashOnDelivery,
		}
	}

	prof := &models.UserBehaviorProfile{
		UserID:             userID,
		TransactionCount:   len(history),
		AvgAmountByChannel: make(map[models.PaymentChannel]float64),
	}

	var sum float64
	hourCounts := make(map[int]int)
	hourOrder := make(map[int]int)
	channelCounts := make(map[models.PaymentChannel]int)
	channelOrder := make(map[models.PaymentChannel]int)
	channelSums := make(map[models.PaymentChannel]float64)
	var points []models.GeoPoint

	for i, txn := range history {
		amount := txn.Amount.InexactFloat64()
		sum += amount

		hour := txn.Hour()
		if _, seen := hourCounts[hour]; !seen {
			hourOrder[hour] = i
		}
		hourCounts[hour]++

		if _, seen := channelCounts[txn.Channel]; !seen {
			channelOrder[txn.Channel] = i
		}
		channelCounts[txn.Channel]++
		channelSums[txn.Channel] += amount

		if txn.Destination != nil && txn.Destination.Location != nil {
			points = append(points, *txn.Destination.Location)
		}
	}

	n := float64(len(history))
	prof.AvgAmount = sum / n

	var variance float64
	for _, txn := range history {
		d := txn.Amount.InexactFloat64() - prof.AvgAmount
		variance += d * d
	}
	prof.StdDevAmount = math.Sqrt(variance / n)

	prof.PreferredHours = topHours(hourCounts, hourOrder, 3)
	prof.PreferredChannels = topChannels(channelCounts, channelOrder, 2)
	prof.CommonLocations = b.clusterer.Cluster(points)
	prof.Velocity = ComputeVelocity(sortedByTime(history))

	for ch, total := range channelSums {
		prof.AvgAmountByChannel[ch] = total / float64(channelCounts[ch])
	}

	return prof
}

// adjustChannelRisk replaces the prior for every channel with at least the
// configured number of observations by an empirical rate of high-risk
// indicators, capped at the channel ceiling. This is a documented heuristic
// proxy for labeled-fraud-rate learning, not a trained classifier; channels
// below the observation floor keep their prior.
func (b *Builder) adjustChannelRisk(txns []*models.Transaction) map[models.PaymentChannel]float64 {
	risk := ChannelPriors()

	total := make(map[models.PaymentChannel]int)
	flagged := make(map[models.PaymentChannel]int)
	for _, txn := range txns {
		total[txn.Channel]++
		if b.highRiskIndicator(txn) {
			flagged[txn.Channel]++
		}
	}

	for ch, count := range total {
		if count < b.cfg.MinChannelObservations {
			continue
		}
		rate := float64(flagged[ch]) / float64(count)
		risk[ch] = math.Min(2*rate, b.cfg.MaxChannelRisk)
	}

	return risk
}

// highRiskIndicator flags a transaction matching any crude fraud proxy:
// a very large amount, an hour outside the daytime band, or a destination
// outside the country (missing coordinates count as outside).
func (b *Builder) highRiskIndicator(txn *models.Transaction) bool {
	if txn.Amount.InexactFloat64() > b.cfg.HighRiskAmount {
		return true
	}
	if hour := txn.Hour(); hour < b.cfg.DayStartHour || hour >= b.cfg.DayEndHour {
		return true
	}
	if txn.Destination == nil || txn.Destination.Location == nil {
		return true
	}
	return !geo.InBangladesh(*txn.Destination.Location)
}

func dropNil(txns []*models.Transaction) []*models.Transaction {
	kept := txns[:0:0]
	for _, txn := range txns {
		if txn != nil {
			kept = append(kept, txn)
		}
	}
	return kept
}

// sortedByTime returns a chronologically ordered copy of the history,
// leaving the caller's slice untouched
func sortedByTime(txns []*models.Transaction) []*models.Transaction {
	ordered := make([]*models.Transaction, len(txns))
	copy(ordered, txns)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	return ordered
}

func topHours(counts map[int]int, order map[int]int, n int) []int {
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return order[a] < order[b]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func topChannels(counts map[models.PaymentChannel]int, order map[models.PaymentChannel]int, n int) []models.PaymentChannel {
	keys := make([]models.PaymentChannel, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return order[a] < order[b]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
