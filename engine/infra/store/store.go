package store

import (
	"context"
	"time"
)

// ConfigStore exposes dynamic platform configuration (token baselines,
// allocation strategy, ceilings, confidence thresholds). Implementations may
// be backed by a database or remote service; callers must tolerate absence
// and transient failure by falling back to defaults.
type ConfigStore interface {
	// Get returns the value for key. The second return reports whether the
	// key exists; absence is not an error.
	Get(ctx context.Context, key string) (any, bool, error)
	// GetMany returns the values for all keys that exist.
	GetMany(ctx context.Context, keys []string) (map[string]any, error)
}

// ExecutionRecord is one historical per-step execution observation, the raw
// material for budget prediction.
type ExecutionRecord struct {
	StepID     string    `json:"step_id"`
	Intent     string    `json:"intent"`
	Tier       string    `json:"tier"`
	Complexity float64   `json:"complexity"`
	TokensUsed int       `json:"tokens_used"`
	CreatedAt  time.Time `json:"created_at"`
}

// PredictionRecord pairs a budget prediction with the usage actually
// observed, for retrospective accuracy reporting.
type PredictionRecord struct {
	Intent          string    `json:"intent"`
	Tier            string    `json:"tier"`
	PredictedBudget int       `json:"predicted_budget"`
	ActualTokens    int       `json:"actual_tokens"`
	CreatedAt       time.Time `json:"created_at"`
}

// ExecutionFilter selects historical executions by intent, tier and a
// complexity window. Zero Since means no time bound.
type ExecutionFilter struct {
	Intent        string
	Tier          string
	MinComplexity float64
	MaxComplexity float64
	Since         time.Time
}

// HistoryStore is the historical execution/prediction store consumed by the
// budget predictor. It is an optimization dependency: implementations that
// cannot serve a query should return an error, which callers translate into
// "no prediction" rather than failure.
type HistoryStore interface {
	QueryExecutions(ctx context.Context, filter ExecutionFilter) ([]ExecutionRecord, error)
	RecordExecution(ctx context.Context, rec ExecutionRecord) error
	QueryPredictions(ctx context.Context, intent, tier string, since time.Time) ([]PredictionRecord, error)
	RecordPrediction(ctx context.Context, rec PredictionRecord) error
}
