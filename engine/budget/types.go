package budget

import "errors"

var (
	// ErrCountMismatch reports a caller-contract violation: the intents slice
	// must line up one-to-one with the workflow's top-level steps.
	ErrCountMismatch = errors.New("step count does not match intent count")

	// ErrBudgetNotFound reports a status lookup for a step that was never
	// allocated. Unlike CheckBudget, which is a soft advisory gate and fails
	// open, a status lookup on an unknown step is a programming error.
	ErrBudgetNotFound = errors.New("no budget allocated for step")
)

// Budget tracks one step's token ceiling and consumption within a single
// workflow execution. Used and Compressed only grow; Remaining can go
// negative only when overage is permitted by configuration. Budgets are
// discarded at Reset — only aggregate historical usage is persisted, for the
// predictor.
type Budget struct {
	Allocated  int `json:"allocated"`
	Used       int `json:"used"`
	Remaining  int `json:"remaining"`
	Compressed int `json:"compressed"`
}

// Summary aggregates budgets across all steps of an execution.
type Summary struct {
	StepCount       int     `json:"stepCount"`
	TotalAllocated  int     `json:"totalAllocated"`
	TotalUsed       int     `json:"totalUsed"`
	TotalRemaining  int     `json:"totalRemaining"`
	TotalCompressed int     `json:"totalCompressed"`
	UtilizationRate float64 `json:"utilizationRate"`
}

// Strategy selects how the workflow cap is divided across steps.
type Strategy string

const (
	// StrategyEqual flattens all steps to a near-identical share of the
	// workflow cap.
	StrategyEqual Strategy = "equal"
	// StrategyProportional keeps each step at its intent-derived baseline,
	// preserving the baseline ordering (generate > extract > send).
	StrategyProportional Strategy = "proportional"
)
