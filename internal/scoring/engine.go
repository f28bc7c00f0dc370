package scoring

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/savegress/payguard/internal/config"
	"github.com/savegress/payguard/internal/profile"
	"github.com/savegress/payguard/pkg/models"
)

// ErrNilInput is returned when a scoring call is missing its transaction
// or user
var ErrNilInput = errors.New("scoring: transaction and user are required")

// Snapshot is one immutable, fully-built set of profiles, statistics and
// risk tables. It is published with a single atomic swap on retrain and
// never mutated afterwards, so scoring calls read it without locking.
type Snapshot struct {
	Trained     bool
	TrainedAt   time.Time
	Profiles    map[string]*models.UserBehaviorProfile
	Statistics  *models.GlobalStatistics
	ChannelRisk map[models.PaymentChannel]float64
	RegionRisk  map[string]float64
}

// EvaluationStats aggregates scoring outcomes since startup
type EvaluationStats struct {
	TotalEvaluations int                      `json:"total_evaluations"`
	ByLevel          map[models.RiskLevel]int `json:"by_level"`
}

// Engine is the scoring facade: it orchestrates feature extraction, risk
// scoring and explanation generation against the currently published
// snapshot, and rebuilds the snapshot on Train.
type Engine struct {
	cfg       *config.Config
	extractor *Extractor
	scorer    *Scorer
	builder   *profile.Builder
	snapshot  atomic.Pointer[Snapshot]

	// evaluation bookkeeping, off the feature-math path
	mu      sync.RWMutex
	history []*models.FraudResult
	byLevel map[models.RiskLevel]int
	total   int
}

// Option configures an Engine
type Option func(*Engine)

// WithIPReputation injects a proxy/VPN reputation source into device risk
// scoring
func WithIPReputation(rep IPReputation) Option {
	return func(e *Engine) {
		e.extractor = NewExtractor(rep)
	}
}

// NewEngine creates an engine. Until the first Train call it serves
// scoring from a default baseline snapshot (empty statistics, prior risk
// tables), so DetectFraud is always available and never fails for lack of
// training.
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		extractor: NewExtractor(nil),
		scorer:    NewScorer(cfg.Scoring.Weights, cfg.Scoring.Thresholds),
		builder:   profile.NewBuilder(cfg.Profiles),
		byLevel:   make(map[models.RiskLevel]int),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.snapshot.Store(&Snapshot{
		Profiles:    make(map[string]*models.UserBehaviorProfile),
		Statistics:  &models.GlobalStatistics{ChannelHistogram: make(map[models.PaymentChannel]int)},
		ChannelRisk: profile.ChannelPriors(),
		RegionRisk:  profile.RegionPriors(),
	})

	return e
}

// Train rebuilds all profiles, statistics and risk tables from the given
// corpus and atomically publishes the result. It is idempotent and safe to
// call repeatedly with a growing corpus; concurrent scoring keeps reading
// the previous snapshot until the swap.
func (e *Engine) Train(users []*models.User, txns []*models.Transaction) {
	result := e.builder.Build(users, txns)

	e.snapshot.Store(&Snapshot{
		Trained:     true,
		TrainedAt:   time.Now(),
		Profiles:    result.Profiles,
		Statistics:  result.Statistics,
		ChannelRisk: result.ChannelRisk,
		RegionRisk:  result.RegionRisk,
	})
}

// DetectFraud scores one transaction against the published snapshot. A
// missing behavioral profile is not an error: scoring falls back to global
// baselines.
func (e *Engine) DetectFraud(txn *models.Transaction, user *models.User) (*models.FraudResult, error) {
	if txn == nil || user == nil {
		return nil, ErrNilInput
	}

	snap := e.snapshot.Load()
	prof := snap.Profiles[user.ID]

	features := e.extractor.Extract(txn, user, prof, snap)
	score := e.scorer.Score(features)
	level := e.scorer.Level(score)

	result := &models.FraudResult{
		TransactionID:   txn.ID,
		FraudScore:      score,
		RiskLevel:       level,
		Confidence:      e.scorer.Confidence(features, user, prof),
		Reasons:         BuildReasons(features),
		Features:        features,
		ContextualRisk:  contextualRisk(features),
		Recommendations: BuildRecommendations(level, features),
		EvaluatedAt:     time.Now().UTC(),
	}

	e.record(result)
	return result, nil
}

// Metrics returns the introspection view of the current snapshot
func (e *Engine) Metrics() *models.ModelMetrics {
	snap := e.snapshot.Load()

	metrics := &models.ModelMetrics{
		Trained:      snap.Trained,
		ProfileCount: len(snap.Profiles),
		Statistics:   summarize(snap.Statistics),
		RiskTableSizes: models.RiskTableSizes{
			Channels: len(snap.ChannelRisk),
			Regions:  len(snap.RegionRisk),
		},
		Thresholds: e.scorer.Thresholds(),
	}
	if snap.Trained {
		at := snap.TrainedAt
		metrics.TrainedAt = &at
	}
	return metrics
}

// RiskTables returns copies of the published channel and region risk
// tables; the snapshot's own maps stay immutable
func (e *Engine) RiskTables() (map[models.PaymentChannel]float64, map[string]float64) {
	snap := e.snapshot.Load()

	channels := make(map[models.PaymentChannel]float64, len(snap.ChannelRisk))
	for ch, risk := range snap.ChannelRisk {
		channels[ch] = risk
	}
	regions := make(map[string]float64, len(snap.RegionRisk))
	for region, risk := range snap.RegionRisk {
		regions[region] = risk
	}
	return channels, regions
}

// Stats returns aggregate evaluation counts since startup
func (e *Engine) Stats() *EvaluationStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	byLevel := make(map[models.RiskLevel]int, len(e.byLevel))
	for level, count := range e.byLevel {
		byLevel[level] = count
	}
	return &EvaluationStats{
		TotalEvaluations: e.total,
		ByLevel:          byLevel,
	}
}

// RecentEvaluations returns up to limit of the most recent results, newest
// first
func (e *Engine) RecentEvaluations(limit int) []*models.FraudResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if limit <= 0 || limit > len(e.history) {
		limit = len(e.history)
	}
	out := make([]*models.FraudResult, 0, limit)
	for i := len(e.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, e.history[i])
	}
	return out
}

func (e *Engine) record(result *models.FraudResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.total++
	e.byLevel[result.RiskLevel]++

	e.history = append(e.history, result)
	if limit := e.cfg.Scoring.HistoryLimit; limit > 0 && len(e.history) > limit {
		e.history = e.history[len(e.history)-limit:]
	}
}

func contextualRisk(f models.FraudFeatureVector) models.ContextualRiskSummary {
	return models.ContextualRiskSummary{
		ChannelRisk:     f.ChannelAmountRisk,
		RegionRisk:      f.GeographicRisk,
		TimeContextRisk: f.TimeAnomaly,
		CulturalRisk:    f.CulturalContextRisk,
	}
}

func summarize(stats *models.GlobalStatistics) models.StatisticsSummary {
	summary := models.StatisticsSummary{
		TransactionCount: stats.TransactionCount,
	}
	if median, ok := stats.PercentileValue(50); ok {
		summary.MedianAmount = median
	}
	if p95, ok := stats.PercentileValue(95); ok {
		summary.P95Amount = p95
	}
	busiest := 0
	for hour, count := range stats.HourHistogram {
		if count > stats.HourHistogram[busiest] {
			busiest = hour
		}
	}
	summary.BusiestHour = busiest
	return summary
}
