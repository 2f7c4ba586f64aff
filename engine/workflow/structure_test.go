package workflow

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStructure(t *testing.T) {
	t.Run("Should reject an empty workflow", func(t *testing.T) {
		result := ValidateStructure(nil)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "at least one step")
	})

	t.Run("Should validate a realistic LLM-generated workflow", func(t *testing.T) {
		payload := `{
			"workflow_steps": [
				{
					"id": "fetch", "name": "Fetch invoices", "type": "action",
					"plugin": "gmail", "action": "search"
				},
				{
					"id": "extract", "name": "Extract totals", "type": "deterministic_extraction",
					"input": "fetch.output",
					"output_schema": {"type": "object", "fields": {"total": "number"}},
					"dependencies": ["fetch"]
				},
				{
					"id": "check", "name": "Check total", "type": "conditional",
					"condition": {"field": "extract.total", "operator": "greater_than", "value": 1000},
					"trueBranch": "notify",
					"dependencies": ["extract"]
				},
				{
					"id": "notify", "name": "Notify", "type": "action",
					"plugin": "slack", "action": "post_message"
				}
			]
		}`
		var wf Workflow
		require.NoError(t, json.Unmarshal([]byte(payload), &wf))
		result := ValidateStructure(wf.Steps)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
	})

	t.Run("Should accumulate errors across all steps in one pass", func(t *testing.T) {
		steps := []Step{
			{ID: "a", Name: "a", Type: StepTypeAction},          // missing plugin + action
			{ID: "b", Name: "b", Type: "teleport"},              // unknown type
			{ID: "c", Name: "c", Type: StepTypeAIProcessing, Dependencies: []string{"ghost"}},
		}
		result := ValidateStructure(steps)
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 4)
	})

	t.Run("Should surface duplicate IDs as warnings, not errors", func(t *testing.T) {
		steps := []Step{
			{ID: "a", Name: "a", Type: StepTypeAIProcessing},
			{ID: "a", Name: "b", Type: StepTypeAIProcessing},
		}
		result := ValidateStructure(steps)
		assert.True(t, result.Valid)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "duplicate step ID")
	})

	t.Run("Should warn about ai_processing inside loops", func(t *testing.T) {
		steps := []Step{{
			ID: "loop1", Name: "loop", Type: StepTypeLoop, IterateOver: "items",
			LoopSteps: []Step{{ID: "ai1", Name: "ai", Type: StepTypeAIProcessing}},
		}}
		result := ValidateStructure(steps)
		assert.True(t, result.Valid)
		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0], "one LLM call per iteration")
	})

	t.Run("Should warn about mixed simple and logical conditions", func(t *testing.T) {
		steps := []Step{{
			ID: "c1", Name: "c", Type: StepTypeConditional,
			Condition: &Condition{
				Field: "x", Operator: OpExists,
				And: []Condition{{Field: "y", Operator: OpExists}},
			},
		}}
		result := ValidateStructure(steps)
		assert.True(t, result.Valid)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "mixes simple and logical")
	})

	t.Run("Should report depth errors for over-nested workflows", func(t *testing.T) {
		result := ValidateStructure(nestedLoops(5))
		assert.False(t, result.Valid)
		found := false
		for _, err := range result.Errors {
			if strings.Contains(err, "exceeds maximum nesting depth") {
				found = true
			}
		}
		assert.True(t, found, "expected a nesting depth error, got %v", result.Errors)
	})
}

func TestValidateWithUserMessage(t *testing.T) {
	t.Run("Should return a bare valid result when nothing is wrong", func(t *testing.T) {
		steps := []Step{{ID: "a", Name: "a", Type: StepTypeAIProcessing}}
		result := ValidateWithUserMessage(steps)
		assert.True(t, result.Valid)
		assert.Empty(t, result.UserMessage)
		assert.Empty(t, result.TechnicalErrors)
	})

	t.Run("Should translate unknown step types into a user-facing hint", func(t *testing.T) {
		steps := []Step{{ID: "a", Name: "a", Type: "teleport"}}
		result := ValidateWithUserMessage(steps)
		assert.False(t, result.Valid)
		assert.Contains(t, result.UserMessage, "unsupported step")
		assert.NotEmpty(t, result.TechnicalErrors)
	})

	t.Run("Should translate nesting depth errors", func(t *testing.T) {
		result := ValidateWithUserMessage(nestedLoops(5))
		assert.False(t, result.Valid)
		assert.Contains(t, result.UserMessage, "nested too deeply")
	})

	t.Run("Should fall back to a generic message", func(t *testing.T) {
		result := ValidateWithUserMessage(nil)
		assert.False(t, result.Valid)
		assert.Contains(t, result.UserMessage, "Try rephrasing")
	})
}
