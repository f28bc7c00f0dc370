package profile

import (
	"time"

	"github.com/savegress/payguard/pkg/models"
)

const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
	weekWindow = 7 * 24 * time.Hour
)

// ComputeVelocity returns the maximum number of transactions observed in
// any sliding 1-hour, 1-day and 1-week window anchored at each
// transaction's timestamp. Input must be time-ordered. Quadratic in the
// worst case, which is acceptable for per-user history sizes.
func ComputeVelocity(txns []*models.Transaction) models.VelocityPattern {
	var pattern models.VelocityPattern

	for i := range txns {
		anchor := txns[i].Timestamp
		hourly, daily, weekly := 0, 0, 0

		for j := i; j < len(txns); j++ {
			delta := txns[j].Timestamp.Sub(anchor)
			if delta >= weekWindow {
				break
			}
			weekly++
			if delta < dayWindow {
				daily++
			}
			if delta < hourWindow {
				hourly++
			}
		}

		if hourly > pattern.MaxHourly {
			pattern.MaxHourly = hourly
		}
		if daily > pattern.MaxDaily {
			pattern.MaxDaily = daily
		}
		if weekly > pattern.MaxWeekly {
			pattern.MaxWeekly = weekly
		}
	}

	return pattern
}

// CountRecent returns how many transactions fall inside the window
// immediately preceding the anchor time, the anchor itself excluded.
func CountRecent(txns []*models.Transaction, anchor time.Time, window time.Duration) int {
	cutoff := anchor.Add(-window)
	count := 0
	for _, txn := range txns {
		if txn.Timestamp.After(cutoff) && !txn.Timestamp.After(anchor) {
			count++
		}
	}
	return count
}
