package profile

import (
	"sort"

	"github.com/savegress/payguard/pkg/models"
)

// percentileLevels is the fixed quantile ladder for the amount distribution
var percentileLevels = []int{1, 5, 25, 50, 75, 95, 99}

// AggregateStatistics computes corpus-wide baselines: the amount percentile
// ladder, a 24-bucket hour-of-day histogram and a payment-channel
// histogram. A zero-transaction corpus yields an empty ladder, which
// callers must treat as "no baseline available".
func AggregateStatistics(txns []*models.Transaction) *models.GlobalStatistics {
	stats := &models.GlobalStatistics{
		TransactionCount: len(txns),
		ChannelHistogram: make(map[models.PaymentChannel]int),
	}

	amounts := make([]float64, 0, len(txns))
	for _, txn := range txns {
		amounts = append(amounts, txn.Amount.InexactFloat64())
		stats.HourHistogram[txn.Hour()]++
		stats.ChannelHistogram[txn.Channel]++
	}

	if len(amounts) > 0 {
		sort.Float64s(amounts)
		for _, p := range percentileLevels {
			stats.AmountLadder = append(stats.AmountLadder, models.AmountPercentile{
				Percentile: p,
				Value:      percentile(amounts, p),
			})
		}
	}

	return stats
}

// percentile returns the value at percentile p of a sorted slice using the
// nearest-rank method
func percentile(sorted []float64, p int) float64 {
	idx := p * len(sorted) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
