package budget

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/agentpilot/agentpilot/engine/core"
	"github.com/agentpilot/agentpilot/engine/infra/store"
	"github.com/agentpilot/agentpilot/engine/intent"
	"github.com/agentpilot/agentpilot/pkg/logger"
)

const (
	// MinSampleSize is the smallest history that yields a prediction; below
	// it callers fall back to static baselines.
	MinSampleSize = 10

	// PredictionFloor and PredictionCeiling clamp predicted budgets so
	// historical anomalies cannot produce degenerate or absurd values.
	PredictionFloor   = 100
	PredictionCeiling = 100_000

	// complexityWindow widens the history query around the requested score.
	complexityWindow = 1.0

	predictionCacheNumCounters = 10_000
	predictionCacheMaxCost     = 1_000
	predictionCacheBufferItems = 64
)

// PredictionSource tags predictions derived from history, as opposed to
// static baselines.
const PredictionSource = "prediction"

// Prediction is a statistical budget forecast derived from historical
// executions.
type Prediction struct {
	Budget     int     `json:"budget"`
	Source     string  `json:"source"`
	SampleSize int     `json:"sampleSize"`
	Confidence float64 `json:"confidence"`
}

// PredictionStats reports retrospective accuracy of past predictions.
type PredictionStats struct {
	SampleSize           int     `json:"sampleSize"`
	MeanAbsoluteError    float64 `json:"meanAbsoluteError"`
	WithinBudgetRate     float64 `json:"withinBudgetRate"`
	NaiveBaselineError   float64 `json:"naiveBaselineError"`
	ImprovementOverNaive float64 `json:"improvementOverNaive"`
}

// CacheStats exposes prediction-cache effectiveness.
type CacheStats struct {
	Hits   uint64  `json:"hits"`
	Misses uint64  `json:"misses"`
	Ratio  float64 `json:"ratio"`
}

// Predictor supplements static baselines with a statistical forecast over
// historical per-step executions. It is an optimization layer, never a hard
// dependency: every store failure degrades to "no prediction". Concurrent
// requests for the same (intent, tier, complexity) key share one lookup.
type Predictor struct {
	history store.HistoryStore
	cache   *ristretto.Cache[string, *Prediction]
	group   singleflight.Group
}

func NewPredictor(history store.HistoryStore) (*Predictor, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *Prediction]{
		NumCounters: predictionCacheNumCounters,
		MaxCost:     predictionCacheMaxCost,
		BufferItems: predictionCacheBufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction cache: %w", err)
	}
	return &Predictor{history: history, cache: cache}, nil
}

// Predict forecasts a token budget for the given intent, tier and complexity
// score. The forecast is sample mean plus two standard deviations over
// executions within ±1 complexity of the (rounded) score, clamped to
// [PredictionFloor, PredictionCeiling]. Returns nil when history is thin
// (< MinSampleSize), unavailable, or the lookup fails.
func (p *Predictor) Predict(ctx context.Context, it intent.Intent, tier core.Tier, complexityScore float64) *Prediction {
	if p.history == nil {
		return nil
	}
	rounded := math.Round(complexityScore)
	key := fmt.Sprintf("%s|%s|%d", it, tier, int(rounded))
	if cached, ok := p.cache.Get(key); ok {
		return cached
	}
	result, err, _ := p.group.Do(key, func() (any, error) {
		return p.computePrediction(ctx, it, tier, rounded)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("budget prediction lookup failed",
			"intent", it, "tier", tier, "error", err)
		return nil
	}
	prediction, _ := result.(*Prediction)
	if prediction != nil {
		p.cache.Set(key, prediction, 1)
		p.cache.Wait()
	}
	return prediction
}

func (p *Predictor) computePrediction(ctx context.Context, it intent.Intent, tier core.Tier, rounded float64) (*Prediction, error) {
	records, err := p.history.QueryExecutions(ctx, store.ExecutionFilter{
		Intent:        it.String(),
		Tier:          tier.String(),
		MinComplexity: rounded - complexityWindow,
		MaxComplexity: rounded + complexityWindow,
	})
	if err != nil {
		return nil, err
	}
	n := len(records)
	if n < MinSampleSize {
		return nil, nil
	}
	mean, stddev := meanStddev(records)
	budget := int(math.Round(mean + 2*stddev))
	if budget < PredictionFloor {
		budget = PredictionFloor
	}
	if budget > PredictionCeiling {
		budget = PredictionCeiling
	}
	return &Prediction{
		Budget:     budget,
		Source:     PredictionSource,
		SampleSize: n,
		Confidence: confidence(n),
	}, nil
}

func meanStddev(records []store.ExecutionRecord) (mean, stddev float64) {
	n := float64(len(records))
	var sum float64
	for _, rec := range records {
		sum += float64(rec.TokensUsed)
	}
	mean = sum / n
	var sq float64
	for _, rec := range records {
		d := float64(rec.TokensUsed) - mean
		sq += d * d
	}
	// population stddev; zero variance legitimately yields prediction == mean
	stddev = math.Sqrt(sq / n)
	return mean, stddev
}

// confidence grows monotonically with sample size and approaches but never
// reaches 1. The curve is an empirically chosen tunable, not a derived
// confidence interval.
func confidence(n int) float64 {
	c := float64(n) / (float64(n) + 50)
	if c > 0.99 {
		c = 0.99
	}
	return c
}

// RecordOutcome persists a prediction/actual pair for retrospective accuracy
// reporting. Failures are logged, never propagated.
func (p *Predictor) RecordOutcome(ctx context.Context, it intent.Intent, tier core.Tier, prediction *Prediction, actualTokens int) {
	if p.history == nil || prediction == nil {
		return
	}
	err := p.history.RecordPrediction(ctx, store.PredictionRecord{
		Intent:          it.String(),
		Tier:            tier.String(),
		PredictedBudget: prediction.Budget,
		ActualTokens:    actualTokens,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to record prediction outcome",
			"intent", it, "tier", tier, "error", err)
	}
}

// GetPredictionStats computes retrospective accuracy of past predictions
// against actual usage and against a naive mean-usage baseline over the last
// windowDays. Returns nil when no qualifying predictions exist — nothing to
// report is not an error.
func (p *Predictor) GetPredictionStats(ctx context.Context, it intent.Intent, tier core.Tier, windowDays int) *PredictionStats {
	if p.history == nil {
		return nil
	}
	since := time.Now().AddDate(0, 0, -windowDays)
	records, err := p.history.QueryPredictions(ctx, it.String(), tier.String(), since)
	if err != nil {
		logger.FromContext(ctx).Warn("prediction stats lookup failed",
			"intent", it, "tier", tier, "error", err)
		return nil
	}
	if len(records) == 0 {
		return nil
	}
	n := float64(len(records))
	var actualSum float64
	for _, rec := range records {
		actualSum += float64(rec.ActualTokens)
	}
	naive := actualSum / n

	var absErr, naiveErr float64
	within := 0
	for _, rec := range records {
		absErr += math.Abs(float64(rec.PredictedBudget - rec.ActualTokens))
		naiveErr += math.Abs(naive - float64(rec.ActualTokens))
		if rec.ActualTokens <= rec.PredictedBudget {
			within++
		}
	}
	stats := &PredictionStats{
		SampleSize:         len(records),
		MeanAbsoluteError:  absErr / n,
		WithinBudgetRate:   float64(within) / n,
		NaiveBaselineError: naiveErr / n,
	}
	if stats.NaiveBaselineError > 0 {
		stats.ImprovementOverNaive = (stats.NaiveBaselineError - stats.MeanAbsoluteError) / stats.NaiveBaselineError
	}
	return stats
}

// GetCacheStats reports prediction-cache hit/miss counts.
func (p *Predictor) GetCacheStats() CacheStats {
	metrics := p.cache.Metrics
	stats := CacheStats{Hits: metrics.Hits(), Misses: metrics.Misses()}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.Ratio = float64(stats.Hits) / float64(total)
	}
	return stats
}

// ClearCache drops all cached predictions.
func (p *Predictor) ClearCache() {
	p.cache.Clear()
}
