package intent

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentpilot/agentpilot/engine/infra/store"
	"github.com/agentpilot/agentpilot/engine/workflow"
	"github.com/agentpilot/agentpilot/pkg/logger"
)

const (
	classificationCacheSize    = 4096
	defaultConfidenceThreshold = 0.7
	confidenceThresholdKey     = "intent.confidence_threshold"

	// FallbackConfidence is the confidence of the best-guess default when no
	// rule matches.
	FallbackConfidence = 0.5
)

// typeIntents maps step types whose intent is determined by the type alone.
var typeIntents = map[workflow.StepType]Classification{
	workflow.StepTypeConditional:             {Intent: IntentConditional, Confidence: 0.95, Reasoning: "step type is conditional"},
	workflow.StepTypeSwitch:                  {Intent: IntentConditional, Confidence: 0.9, Reasoning: "step type is switch"},
	workflow.StepTypeLLMDecision:             {Intent: IntentConditional, Confidence: 0.9, Reasoning: "step type is llm_decision"},
	workflow.StepTypeTransform:               {Intent: IntentTransform, Confidence: 0.9, Reasoning: "step type is transform"},
	workflow.StepTypeValidation:              {Intent: IntentValidate, Confidence: 0.9, Reasoning: "step type is validation"},
	workflow.StepTypeComparison:              {Intent: IntentValidate, Confidence: 0.85, Reasoning: "step type is comparison"},
	workflow.StepTypeDeterministicExtraction: {Intent: IntentExtract, Confidence: 0.9, Reasoning: "step type is deterministic_extraction"},
	workflow.StepTypeEnrichment:              {Intent: IntentExtract, Confidence: 0.85, Reasoning: "step type is enrichment"},
}

// sendPluginSignals mark plugins whose whole purpose is delivery.
var sendPluginSignals = []string{"email", "mail", "notification", "notify", "slack", "sms", "webhook", "messag"}

// promptRules maps leading verbs to intents; first match wins.
var promptRules = []struct {
	prefixes []string
	result   Classification
}{
	{[]string{"validate", "verify", "check", "ensure"},
		Classification{Intent: IntentValidate, Confidence: 0.85, Reasoning: "prompt starts with a validation verb"}},
	{[]string{"summarize", "summarise", "condense", "tl;dr"},
		Classification{Intent: IntentSummarize, Confidence: 0.85, Reasoning: "prompt starts with a summarization verb"}},
	{[]string{"extract", "parse", "pull", "identify", "find"},
		Classification{Intent: IntentExtract, Confidence: 0.85, Reasoning: "prompt starts with an extraction verb"}},
	{[]string{"transform", "convert", "reformat", "translate"},
		Classification{Intent: IntentTransform, Confidence: 0.85, Reasoning: "prompt starts with a transformation verb"}},
	{[]string{"send", "notify", "email", "forward"},
		Classification{Intent: IntentSend, Confidence: 0.85, Reasoning: "prompt starts with a delivery verb"}},
	{[]string{"generate", "write", "create", "compose", "draft"},
		Classification{Intent: IntentGenerate, Confidence: 0.85, Reasoning: "prompt starts with a generation verb"}},
}

// Classifier assigns an intent to each workflow step using ordered fast-path
// pattern rules over the step's type, prompt and plugin. Classification never
// fails: malformed steps degrade to the generate fallback. Results are cached
// by a hash of the discriminating fields.
type Classifier struct {
	cache *lru.Cache[uint64, Classification]
	cfg   store.ConfigStore

	thresholdOnce sync.Once
	threshold     float64
}

func NewClassifier(cfg store.ConfigStore) (*Classifier, error) {
	cache, err := lru.New[uint64, Classification](classificationCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification cache: %w", err)
	}
	return &Classifier{cache: cache, cfg: cfg, threshold: defaultConfidenceThreshold}, nil
}

// Classify returns the intent classification for one step.
func (c *Classifier) Classify(step *workflow.Step) Classification {
	if step == nil {
		return fallback("step is nil")
	}
	key := cacheKey(step)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}
	result := classify(step)
	c.cache.Add(key, result)
	return result
}

// ClassifyBatch classifies steps in order.
func (c *Classifier) ClassifyBatch(steps []workflow.Step) []Classification {
	out := make([]Classification, len(steps))
	for i := range steps {
		out[i] = c.Classify(&steps[i])
	}
	return out
}

// ClearCache drops all cached classifications.
func (c *Classifier) ClearCache() {
	c.cache.Purge()
}

// ConfidenceThreshold returns the configured threshold separating "confident"
// from "best-guess" classifications. Loaded once from the config store and
// cached; lookup failure falls back to the default so classification is never
// blocked on configuration.
func (c *Classifier) ConfidenceThreshold(ctx context.Context) float64 {
	c.thresholdOnce.Do(func() {
		if c.cfg == nil {
			return
		}
		value, ok, err := c.cfg.Get(ctx, confidenceThresholdKey)
		if err != nil {
			logger.FromContext(ctx).Warn("failed to load confidence threshold, using default",
				"key", confidenceThresholdKey, "default", defaultConfidenceThreshold, "error", err)
			return
		}
		if !ok {
			return
		}
		threshold, ok := toFloat(value)
		if !ok || threshold <= 0 || threshold > 1 {
			logger.FromContext(ctx).Warn("invalid confidence threshold, using default",
				"key", confidenceThresholdKey, "value", value)
			return
		}
		c.threshold = threshold
	})
	return c.threshold
}

func classify(step *workflow.Step) Classification {
	if result, ok := typeIntents[step.Type]; ok {
		return result
	}
	plugin := strings.ToLower(step.Plugin)
	if plugin != "" {
		for _, signal := range sendPluginSignals {
			if strings.Contains(plugin, signal) {
				return Classification{
					Intent:     IntentSend,
					Confidence: 0.9,
					Reasoning:  fmt.Sprintf("plugin %q signals delivery", step.Plugin),
				}
			}
		}
	}
	prompt := strings.ToLower(strings.TrimSpace(step.Prompt))
	if prompt != "" {
		for _, rule := range promptRules {
			for _, prefix := range rule.prefixes {
				if strings.HasPrefix(prompt, prefix) {
					return rule.result
				}
			}
		}
	}
	return fallback("no classification rule matched")
}

func fallback(why string) Classification {
	return Classification{
		Intent:     IntentGenerate,
		Confidence: FallbackConfidence,
		Reasoning:  "Fallback: " + why,
	}
}

func cacheKey(step *workflow.Step) uint64 {
	h := fnv.New64a()
	h.Write([]byte(step.Type))
	h.Write([]byte{0})
	h.Write([]byte(step.Prompt))
	h.Write([]byte{0})
	h.Write([]byte(step.Plugin))
	return h.Sum64()
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
