package config

// Config holds application defaults. Values here are the static layer:
// dynamic overrides (per-tenant baselines, strategy changes) come from the
// platform configuration store at runtime and take precedence.
type Config struct {
	Log    LogConfig    `koanf:"log"`
	Limits LimitsConfig `koanf:"limits"`
	Budget BudgetConfig `koanf:"budget"`
	Intent IntentConfig `koanf:"intent"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

type LimitsConfig struct {
	// MaxNestingDepth is the hard ceiling for nested step containers. The
	// strict generation schema only expands this many levels, so anything
	// deeper was never representable and must be rejected.
	MaxNestingDepth int `koanf:"max_nesting_depth" validate:"min=1"`
}

type BudgetConfig struct {
	Strategy         string         `koanf:"strategy"          validate:"oneof=equal proportional"`
	WorkflowCeiling  int            `koanf:"workflow_ceiling"  validate:"min=1"`
	StepCeiling      int            `koanf:"step_ceiling"      validate:"min=1"`
	AllowOverage     bool           `koanf:"allow_overage"`
	OverageThreshold float64        `koanf:"overage_threshold" validate:"gte=1"`
	Baselines        map[string]int `koanf:"baselines"         validate:"required"`
}

type IntentConfig struct {
	ConfidenceThreshold float64 `koanf:"confidence_threshold" validate:"gt=0,lte=1"`
}

// Default returns the built-in configuration. Allocation never hard-fails on
// configuration unavailability because these values always apply as a floor.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Limits: LimitsConfig{
			MaxNestingDepth: 5,
		},
		Budget: BudgetConfig{
			Strategy:         "proportional",
			WorkflowCeiling:  50000,
			StepCeiling:      10000,
			AllowOverage:     false,
			OverageThreshold: 1.2,
			Baselines: map[string]int{
				"extract":     800,
				"summarize":   1500,
				"generate":    2500,
				"validate":    1000,
				"send":        500,
				"transform":   800,
				"conditional": 300,
			},
		},
		Intent: IntentConfig{
			ConfidenceThreshold: 0.7,
		},
	}
}
