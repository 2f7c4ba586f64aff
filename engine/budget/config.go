package budget

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/agentpilot/agentpilot/engine/infra/store"
	"github.com/agentpilot/agentpilot/engine/intent"
	appconfig "github.com/agentpilot/agentpilot/pkg/config"
	"github.com/agentpilot/agentpilot/pkg/logger"
)

// Config is the effective allocation configuration: application defaults
// overlaid with dynamic values from the platform configuration store.
type Config struct {
	Baselines        map[intent.Intent]int
	Strategy         Strategy
	WorkflowCeiling  int
	StepCeiling      int
	AllowOverage     bool
	OverageThreshold float64
}

const (
	keyStrategy         = "budget.strategy"
	keyWorkflowCeiling  = "budget.workflow_ceiling"
	keyStepCeiling      = "budget.step_ceiling"
	keyAllowOverage     = "budget.allow_overage"
	keyOverageThreshold = "budget.overage_threshold"
	baselineKeyPrefix   = "budget.baseline."
)

// defaultConfig builds the static-default configuration from pkg/config.
func defaultConfig() *Config {
	defaults := appconfig.Default().Budget
	cfg := &Config{
		Baselines:        make(map[intent.Intent]int, len(defaults.Baselines)),
		Strategy:         Strategy(defaults.Strategy),
		WorkflowCeiling:  defaults.WorkflowCeiling,
		StepCeiling:      defaults.StepCeiling,
		AllowOverage:     defaults.AllowOverage,
		OverageThreshold: defaults.OverageThreshold,
	}
	for name, baseline := range defaults.Baselines {
		cfg.Baselines[intent.Intent(name)] = baseline
	}
	return cfg
}

// loadConfig fetches dynamic overrides from the configuration store with a
// short retry, falling back to defaults on failure so allocation never
// hard-fails on configuration unavailability.
func loadConfig(ctx context.Context, cfgStore store.ConfigStore) *Config {
	cfg := defaultConfig()
	if cfgStore == nil {
		return cfg
	}
	keys := []string{keyStrategy, keyWorkflowCeiling, keyStepCeiling, keyAllowOverage, keyOverageThreshold}
	for _, it := range intent.All() {
		keys = append(keys, baselineKeyPrefix+it.String())
	}
	var values map[string]any
	backoff := retry.WithMaxRetries(2, retry.NewExponential(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		values, err = cfgStore.GetMany(ctx, keys)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to load budget configuration, using defaults", "error", err)
		return cfg
	}
	applyOverrides(ctx, cfg, values)
	return cfg
}

func applyOverrides(ctx context.Context, cfg *Config, values map[string]any) {
	log := logger.FromContext(ctx)
	if raw, ok := values[keyStrategy]; ok {
		switch Strategy(fmt.Sprint(raw)) {
		case StrategyEqual:
			cfg.Strategy = StrategyEqual
		case StrategyProportional:
			cfg.Strategy = StrategyProportional
		default:
			log.Warn("ignoring unknown budget strategy", "value", raw)
		}
	}
	if n, ok := intValue(values[keyWorkflowCeiling]); ok && n > 0 {
		cfg.WorkflowCeiling = n
	}
	if n, ok := intValue(values[keyStepCeiling]); ok && n > 0 {
		cfg.StepCeiling = n
	}
	if raw, ok := values[keyAllowOverage]; ok {
		if b, ok := boolValue(raw); ok {
			cfg.AllowOverage = b
		}
	}
	if f, ok := floatValue(values[keyOverageThreshold]); ok && f >= 1 {
		cfg.OverageThreshold = f
	}
	for _, it := range intent.All() {
		if n, ok := intValue(values[baselineKeyPrefix+it.String()]); ok && n > 0 {
			cfg.Baselines[it] = n
		}
	}
}

func intValue(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

func floatValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func boolValue(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	default:
		return false, false
	}
}
