package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/agentpilot/agentpilot/engine/core"
	"github.com/agentpilot/agentpilot/engine/infra/store"
	"github.com/agentpilot/agentpilot/engine/intent"
	"github.com/agentpilot/agentpilot/engine/workflow"
	"github.com/agentpilot/agentpilot/pkg/logger"
	"github.com/agentpilot/agentpilot/pkg/tokens"
)

// fallbackBaseline applies when an intent has no configured baseline.
const fallbackBaseline = 1000

// Manager allocates per-step token ceilings for one workflow execution and
// tracks consumption against them. The budget map is owned by the execution
// that allocated it; usage tracking for different step IDs may run
// concurrently (parallel groups, scatter-gather) and the aggregate summary
// reads a consistent snapshot.
type Manager struct {
	mu        sync.RWMutex
	budgets   map[string]*Budget
	sessionID string

	cfgMu    sync.Mutex
	cfg      *Config
	cfgStore store.ConfigStore

	counter tokens.Counter
}

type Option func(*Manager)

// WithTokenCounter overrides the prompt-size estimator.
func WithTokenCounter(counter tokens.Counter) Option {
	return func(m *Manager) {
		m.counter = counter
	}
}

func NewManager(cfgStore store.ConfigStore, opts ...Option) *Manager {
	m := &Manager{
		budgets:  make(map[string]*Budget),
		cfgStore: cfgStore,
		counter:  tokens.HeuristicCounter{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// config returns the cached effective configuration, loading it on first use.
func (m *Manager) config(ctx context.Context) *Config {
	m.cfgMu.Lock()
	defer m.cfgMu.Unlock()
	if m.cfg == nil {
		m.cfg = loadConfig(ctx, m.cfgStore)
	}
	return m.cfg
}

// ReloadConfig forces a refresh of the effective configuration. Intended to
// be called out-of-band on administrative configuration change, not on the
// execution hot path.
func (m *Manager) ReloadConfig(ctx context.Context) {
	cfg := loadConfig(ctx, m.cfgStore)
	m.cfgMu.Lock()
	m.cfg = cfg
	m.cfgMu.Unlock()
}

// Allocate produces the per-step budget map for a workflow. intents must
// line up one-to-one with the workflow's top-level steps; a mismatch is a
// caller-contract violation and fails loudly. agentAIS, when non-nil, scales
// baselines up with agent complexity (never below the baseline). The total
// never exceeds the configured workflow ceiling: oversubscription scales
// every step down proportionally.
func (m *Manager) Allocate(
	ctx context.Context,
	wf *workflow.Workflow,
	intents []intent.Classification,
	agentAIS *float64,
) (map[string]Budget, error) {
	if wf == nil {
		return nil, fmt.Errorf("workflow cannot be nil")
	}
	if len(wf.Steps) != len(intents) {
		return nil, fmt.Errorf("%w: %d steps, %d intents", ErrCountMismatch, len(wf.Steps), len(intents))
	}
	cfg := m.config(ctx)
	allocations := make([]int, len(wf.Steps))
	switch cfg.Strategy {
	case StrategyEqual:
		m.allocateEqual(cfg, allocations)
	default:
		m.allocateProportional(cfg, wf.Steps, intents, agentAIS, allocations)
	}
	scaleToCeiling(allocations, cfg.WorkflowCeiling)

	m.mu.Lock()
	m.budgets = make(map[string]*Budget, len(wf.Steps))
	m.sessionID = uuid.NewString()
	out := make(map[string]Budget, len(wf.Steps))
	for i := range wf.Steps {
		b := &Budget{Allocated: allocations[i], Remaining: allocations[i]}
		m.budgets[wf.Steps[i].ID] = b
		out[wf.Steps[i].ID] = *b
	}
	sessionID := m.sessionID
	m.mu.Unlock()

	logger.FromContext(ctx).Debug("allocated step budgets",
		"session_id", sessionID, "workflow_id", wf.ID, "steps", len(wf.Steps), "strategy", cfg.Strategy)
	return out, nil
}

func (m *Manager) allocateEqual(cfg *Config, allocations []int) {
	if len(allocations) == 0 {
		return
	}
	share := cfg.WorkflowCeiling / len(allocations)
	if cfg.StepCeiling > 0 && share > cfg.StepCeiling {
		share = cfg.StepCeiling
	}
	for i := range allocations {
		allocations[i] = share
	}
}

func (m *Manager) allocateProportional(
	cfg *Config,
	steps []workflow.Step,
	intents []intent.Classification,
	agentAIS *float64,
	allocations []int,
) {
	multiplier := 1.0
	if agentAIS != nil {
		// 0 -> 1x, 10 -> 2x; never below the baseline
		multiplier = 1 + core.ClampAIS(*agentAIS)/core.AISMax
	}
	for i := range steps {
		baseline, ok := cfg.Baselines[intents[i].Intent]
		if !ok {
			baseline = fallbackBaseline
		}
		allocated := int(float64(baseline) * multiplier)
		if allocated < baseline {
			allocated = baseline
		}
		if prompt := steps[i].Prompt; prompt != "" {
			// a budget smaller than its own prompt can never succeed
			if estimated, err := m.counter.CountTokens(prompt); err == nil && estimated > allocated {
				allocated = estimated
			}
		}
		if cfg.StepCeiling > 0 && allocated > cfg.StepCeiling {
			allocated = cfg.StepCeiling
		}
		allocations[i] = allocated
	}
}

func scaleToCeiling(allocations []int, ceiling int) {
	if ceiling <= 0 {
		return
	}
	total := 0
	for _, a := range allocations {
		total += a
	}
	if total <= ceiling {
		return
	}
	factor := float64(ceiling) / float64(total)
	for i := range allocations {
		allocations[i] = int(float64(allocations[i]) * factor)
	}
}

// TrackUsage accumulates tokens consumed by a step and recomputes its
// remainder. It never fails: by the time usage is known the LLM call has
// already happened, so an overage can only be logged, not prevented.
func (m *Manager) TrackUsage(ctx context.Context, stepID string, tokensUsed int) {
	m.mu.Lock()
	b, ok := m.budgets[stepID]
	if !ok {
		m.mu.Unlock()
		logger.FromContext(ctx).Warn("usage reported for unbudgeted step", "step_id", stepID, "tokens", tokensUsed)
		return
	}
	b.Used += tokensUsed
	b.Remaining = b.Allocated - b.Used
	remaining := b.Remaining
	m.mu.Unlock()

	if remaining < 0 {
		cfg := m.config(ctx)
		if !cfg.AllowOverage {
			logger.FromContext(ctx).Warn("step exceeded its token budget",
				"step_id", stepID, "overage", -remaining)
		}
	}
}

// CheckBudget reports whether a prospective call of proposedTokens would fit
// the step's budget, honoring the configured overage threshold. Unknown step
// IDs return true: an unbudgeted step must not block execution.
func (m *Manager) CheckBudget(ctx context.Context, stepID string, proposedTokens int) bool {
	m.mu.RLock()
	b, ok := m.budgets[stepID]
	var allocated, used int
	if ok {
		allocated, used = b.Allocated, b.Used
	}
	m.mu.RUnlock()
	if !ok {
		return true
	}
	cfg := m.config(ctx)
	limit := allocated
	if cfg.AllowOverage {
		limit = int(float64(allocated) * cfg.OverageThreshold)
	}
	return used+proposedTokens <= limit
}

// RecordCompression accumulates tokens saved by prompt compression for a
// step, tracking the technique's effectiveness.
func (m *Manager) RecordCompression(ctx context.Context, stepID string, tokensSaved int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[stepID]
	if !ok {
		logger.FromContext(ctx).Warn("compression reported for unbudgeted step", "step_id", stepID)
		return
	}
	b.Compressed += tokensSaved
}

// GetBudgetStatus returns a copy of the step's budget. Unknown step IDs are
// a precondition violation and fail with ErrBudgetNotFound.
func (m *Manager) GetBudgetStatus(stepID string) (Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.budgets[stepID]
	if !ok {
		return Budget{}, fmt.Errorf("%w: %q", ErrBudgetNotFound, stepID)
	}
	return *b, nil
}

// GetTotalBudgetSummary aggregates all step budgets. With nothing allocated
// it returns an all-zero summary rather than dividing by zero.
func (m *Manager) GetTotalBudgetSummary() Summary {
	m.mu.RLock()
	snapshot := make([]Budget, 0, len(m.budgets))
	for _, b := range m.budgets {
		snapshot = append(snapshot, *b)
	}
	m.mu.RUnlock()

	summary := Summary{StepCount: len(snapshot)}
	for _, b := range snapshot {
		summary.TotalAllocated += b.Allocated
		summary.TotalUsed += b.Used
		summary.TotalRemaining += b.Remaining
		summary.TotalCompressed += b.Compressed
	}
	if summary.TotalAllocated > 0 {
		summary.UtilizationRate = float64(summary.TotalUsed) / float64(summary.TotalAllocated)
	}
	return summary
}

// SessionID identifies the current allocation, for log correlation.
func (m *Manager) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// Reset discards all per-execution budget state. Historical usage lives in
// the execution store, not here.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets = make(map[string]*Budget)
	m.sessionID = ""
}
