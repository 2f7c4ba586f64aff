package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpilot/agentpilot/engine/infra/store"
	"github.com/agentpilot/agentpilot/engine/workflow"
)

func newTestClassifier(t *testing.T, cfg store.ConfigStore) *Classifier {
	t.Helper()
	classifier, err := NewClassifier(cfg)
	require.NoError(t, err)
	return classifier
}

func TestClassifier_Classify(t *testing.T) {
	classifier := newTestClassifier(t, nil)

	t.Run("Should classify by step type first", func(t *testing.T) {
		cases := []struct {
			stepType workflow.StepType
			want     Intent
		}{
			{workflow.StepTypeConditional, IntentConditional},
			{workflow.StepTypeSwitch, IntentConditional},
			{workflow.StepTypeLLMDecision, IntentConditional},
			{workflow.StepTypeTransform, IntentTransform},
			{workflow.StepTypeValidation, IntentValidate},
			{workflow.StepTypeComparison, IntentValidate},
			{workflow.StepTypeDeterministicExtraction, IntentExtract},
			{workflow.StepTypeEnrichment, IntentExtract},
		}
		for _, tc := range cases {
			result := classifier.Classify(&workflow.Step{Type: tc.stepType})
			assert.Equal(t, tc.want, result.Intent, "type %s", tc.stepType)
			assert.GreaterOrEqual(t, result.Confidence, 0.85)
			assert.NotEmpty(t, result.Reasoning)
		}
	})

	t.Run("Should let step type win over a conflicting prompt", func(t *testing.T) {
		step := &workflow.Step{Type: workflow.StepTypeTransform, Prompt: "summarize the report"}
		result := classifier.Classify(step)
		assert.Equal(t, IntentTransform, result.Intent)
	})

	t.Run("Should classify delivery plugins as send", func(t *testing.T) {
		for _, plugin := range []string{"email", "Slack", "sms-gateway", "messaging"} {
			step := &workflow.Step{Type: workflow.StepTypeAction, Plugin: plugin}
			result := classifier.Classify(step)
			assert.Equal(t, IntentSend, result.Intent, "plugin %s", plugin)
			assert.InDelta(t, 0.9, result.Confidence, 1e-9)
		}
	})

	t.Run("Should classify by prompt verb prefix", func(t *testing.T) {
		cases := []struct {
			prompt string
			want   Intent
		}{
			{"Validate the invoice totals", IntentValidate},
			{"check that every field is set", IntentValidate},
			{"Summarize this thread", IntentSummarize},
			{"extract the due date", IntentExtract},
			{"Convert this to CSV", IntentTransform},
			{"send the report to finance", IntentSend},
			{"Write a polite reply", IntentGenerate},
			{"draft a follow-up email", IntentGenerate},
		}
		for _, tc := range cases {
			step := &workflow.Step{Type: workflow.StepTypeAIProcessing, Prompt: tc.prompt}
			result := classifier.Classify(step)
			assert.Equal(t, tc.want, result.Intent, "prompt %q", tc.prompt)
			assert.InDelta(t, 0.85, result.Confidence, 1e-9)
		}
	})

	t.Run("Should fall back to generate when nothing matches", func(t *testing.T) {
		step := &workflow.Step{Type: workflow.StepTypeAIProcessing, Prompt: "the quarterly numbers look odd"}
		result := classifier.Classify(step)
		assert.Equal(t, IntentGenerate, result.Intent)
		assert.InDelta(t, FallbackConfidence, result.Confidence, 1e-9)
		assert.Contains(t, result.Reasoning, "Fallback:")
	})

	t.Run("Should never fail on a nil or empty step", func(t *testing.T) {
		result := classifier.Classify(nil)
		assert.Equal(t, IntentGenerate, result.Intent)
		assert.Contains(t, result.Reasoning, "Fallback:")

		result = classifier.Classify(&workflow.Step{})
		assert.Equal(t, IntentGenerate, result.Intent)
	})

	t.Run("Should return identical results from the cache", func(t *testing.T) {
		step := &workflow.Step{Type: workflow.StepTypeAIProcessing, Prompt: "summarize the meeting"}
		first := classifier.Classify(step)
		second := classifier.Classify(step)
		assert.Equal(t, first, second)
		classifier.ClearCache()
		third := classifier.Classify(step)
		assert.Equal(t, first, third)
	})
}

func TestClassifier_ClassifyBatch(t *testing.T) {
	classifier := newTestClassifier(t, nil)

	t.Run("Should classify steps in order", func(t *testing.T) {
		steps := []workflow.Step{
			{Type: workflow.StepTypeValidation},
			{Type: workflow.StepTypeAIProcessing, Prompt: "summarize it"},
			{Type: workflow.StepTypeAIProcessing},
		}
		results := classifier.ClassifyBatch(steps)
		require.Len(t, results, 3)
		assert.Equal(t, IntentValidate, results[0].Intent)
		assert.Equal(t, IntentSummarize, results[1].Intent)
		assert.Equal(t, IntentGenerate, results[2].Intent)
	})

	t.Run("Should return an empty slice for no steps", func(t *testing.T) {
		assert.Empty(t, classifier.ClassifyBatch(nil))
	})
}

func TestClassifier_ConfidenceThreshold(t *testing.T) {
	ctx := context.Background()

	t.Run("Should default without a config store", func(t *testing.T) {
		classifier := newTestClassifier(t, nil)
		assert.InDelta(t, 0.7, classifier.ConfidenceThreshold(ctx), 1e-9)
	})

	t.Run("Should load the threshold from the config store once", func(t *testing.T) {
		cfg := store.NewMemoryConfigStore()
		cfg.Set("intent.confidence_threshold", 0.8)
		classifier := newTestClassifier(t, cfg)
		assert.InDelta(t, 0.8, classifier.ConfidenceThreshold(ctx), 1e-9)

		// later changes are not picked up; the value is cached
		cfg.Set("intent.confidence_threshold", 0.3)
		assert.InDelta(t, 0.8, classifier.ConfidenceThreshold(ctx), 1e-9)
	})

	t.Run("Should fall back to the default on store failure", func(t *testing.T) {
		cfg := store.NewMemoryConfigStore()
		cfg.FailWith(errors.New("connection refused"))
		classifier := newTestClassifier(t, cfg)
		assert.InDelta(t, 0.7, classifier.ConfidenceThreshold(ctx), 1e-9)
	})

	t.Run("Should reject out-of-range thresholds", func(t *testing.T) {
		cfg := store.NewMemoryConfigStore()
		cfg.Set("intent.confidence_threshold", 1.5)
		classifier := newTestClassifier(t, cfg)
		assert.InDelta(t, 0.7, classifier.ConfidenceThreshold(ctx), 1e-9)
	})
}

func TestDistribution(t *testing.T) {
	t.Run("Should count classifications per intent", func(t *testing.T) {
		dist := Distribution([]Classification{
			{Intent: IntentGenerate},
			{Intent: IntentGenerate},
			{Intent: IntentSend},
		})
		assert.Equal(t, map[Intent]int{IntentGenerate: 2, IntentSend: 1}, dist)
	})
}
