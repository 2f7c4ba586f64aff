package config

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/agentpilot/agentpilot/engine/core"
)

// envPrefix namespaces the environment variables this loader consumes.
const envPrefix = "AGENTPILOT_"

// envMappings maps environment variable names to koanf config paths. Only
// mapped variables are consumed; everything else in the environment is
// ignored.
var envMappings = map[string]string{
	envPrefix + "LOG_LEVEL":                   "log.level",
	envPrefix + "LOG_JSON":                    "log.json",
	envPrefix + "MAX_NESTING_DEPTH":           "limits.max_nesting_depth",
	envPrefix + "BUDGET_STRATEGY":             "budget.strategy",
	envPrefix + "BUDGET_WORKFLOW_CEILING":     "budget.workflow_ceiling",
	envPrefix + "BUDGET_STEP_CEILING":         "budget.step_ceiling",
	envPrefix + "BUDGET_ALLOW_OVERAGE":        "budget.allow_overage",
	envPrefix + "BUDGET_OVERAGE_THRESHOLD":    "budget.overage_threshold",
	envPrefix + "INTENT_CONFIDENCE_THRESHOLD": "intent.confidence_threshold",
}

// Load builds the application configuration from built-in defaults overlaid
// with mapped environment variables, then validates the result.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			if path, ok := envMappings[key]; ok {
				return path, value
			}
			return "", nil
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	validator := core.NewCompositeValidator(
		core.NewStructValidator(cfg),
		&ceilingValidator{cfg: cfg},
	)
	if err := validator.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ceilingValidator checks the cross-field constraint struct tags cannot
// express: a step ceiling above the workflow ceiling could never be reached.
type ceilingValidator struct {
	cfg *Config
}

func (v *ceilingValidator) Validate(_ context.Context) error {
	if v.cfg.Budget.StepCeiling > v.cfg.Budget.WorkflowCeiling {
		return fmt.Errorf("budget step ceiling (%d) cannot exceed the workflow ceiling (%d)",
			v.cfg.Budget.StepCeiling, v.cfg.Budget.WorkflowCeiling)
	}
	return nil
}
