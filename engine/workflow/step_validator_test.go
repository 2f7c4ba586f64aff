package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idSet(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestValidateStep_Universal(t *testing.T) {
	t.Run("Should report only the missing type when type is absent", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "no type"}, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "step type is required")
	})

	t.Run("Should report missing id and name without aborting", func(t *testing.T) {
		errs := ValidateStep(&Step{Type: StepTypeAIProcessing}, idSet(), "steps[0]")
		assert.Len(t, errs, 2)
	})

	t.Run("Should report each dangling dependency with its index", func(t *testing.T) {
		step := &Step{ID: "s1", Name: "s", Type: StepTypeAIProcessing, Dependencies: []string{"ghost1", "s1", "ghost2"}}
		errs := ValidateStep(step, idSet("s1"), "steps[0]")
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0], `dependencies[0] references unknown step "ghost1"`)
		assert.Contains(t, errs[1], `dependencies[2] references unknown step "ghost2"`)
	})

	t.Run("Should validate the executeIf guard", func(t *testing.T) {
		step := &Step{ID: "s1", Name: "s", Type: StepTypeAIProcessing, ExecuteIf: &Condition{}}
		errs := ValidateStep(step, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "steps[0].executeIf")
	})

	t.Run("Should report unknown step types by name", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: "teleport"}, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], `unknown step type "teleport"`)
	})

	t.Run("Should recognize every declared step type", func(t *testing.T) {
		for typ := range knownStepTypes {
			errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: typ}, idSet("s1"), "steps[0]")
			for _, err := range errs {
				assert.NotContains(t, err, "unknown step type", "type %s", typ)
			}
		}
	})
}

func TestValidateStep_PerType(t *testing.T) {
	t.Run("Should require plugin and action on action steps", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: StepTypeAction}, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 2)
		assert.Contains(t, errs[0], "requires plugin")
		assert.Contains(t, errs[1], "requires action")
	})

	t.Run("Should require condition on conditional steps and check branches", func(t *testing.T) {
		step := &Step{ID: "s1", Name: "s", Type: StepTypeConditional, TrueBranch: "ghost"}
		errs := ValidateStep(step, idSet("s1"), "steps[0]")
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0], "requires condition")
		assert.Contains(t, errs[1], `trueBranch references unknown step "ghost"`)
	})

	t.Run("Should require iterateOver and loopSteps on loops", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: StepTypeLoop}, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 2)
	})

	t.Run("Should reject non-positive maxIterations", func(t *testing.T) {
		zero := 0
		step := &Step{ID: "s1", Name: "s", Type: StepTypeLoop, IterateOver: "items", LoopSteps: []Step{}, MaxIterations: &zero}
		errs := ValidateStep(step, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "maxIterations must be a positive number")
	})

	t.Run("Should require steps array on parallel groups", func(t *testing.T) {
		for _, typ := range []StepType{StepTypeParallelGroup, StepTypeParallel} {
			errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: typ}, idSet("s1"), "steps[0]")
			require.Len(t, errs, 1, "type %s", typ)
			assert.Contains(t, errs[0], "requires steps array")
		}
	})

	t.Run("Should validate switch cases and default against known IDs", func(t *testing.T) {
		step := &Step{
			ID: "s1", Name: "s", Type: StepTypeSwitch,
			Evaluate: "status",
			Cases:    map[string][]string{"open": {"s2", "ghost"}},
			Default:  []string{"ghost2"},
		}
		errs := ValidateStep(step, idSet("s1", "s2"), "steps[0]")
		assert.Len(t, errs, 2)
	})

	t.Run("Should require scatter input, scatter steps and gather operation", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: StepTypeScatterGather}, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 2) // missing scatter entirely + missing gather.operation
		step := &Step{ID: "s1", Name: "s", Type: StepTypeScatterGather, Scatter: &Scatter{}, Gather: &Gather{Operation: "merge"}}
		errs = ValidateStep(step, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 2) // scatter.input + scatter.steps
	})

	t.Run("Should enforce the transform operation allowlist", func(t *testing.T) {
		step := &Step{ID: "s1", Name: "s", Type: StepTypeTransform, Operation: "teleport", Config: map[string]any{}}
		errs := ValidateStep(step, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], `unsupported transform operation "teleport"`)
	})

	t.Run("Should accept a valid transform step", func(t *testing.T) {
		step := &Step{ID: "s1", Name: "s", Type: StepTypeTransform, Operation: "filter", Config: map[string]any{"by": "x"}}
		assert.Empty(t, ValidateStep(step, idSet("s1"), "steps[0]"))
	})

	t.Run("Should reject negative delay durations", func(t *testing.T) {
		negative := -1.0
		step := &Step{ID: "s1", Name: "s", Type: StepTypeDelay, Duration: &negative}
		errs := ValidateStep(step, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "non-negative")
	})

	t.Run("Should accept a zero delay duration", func(t *testing.T) {
		zero := 0.0
		step := &Step{ID: "s1", Name: "s", Type: StepTypeDelay, Duration: &zero}
		assert.Empty(t, ValidateStep(step, idSet("s1"), "steps[0]"))
	})

	t.Run("Should require sources and strategy on enrichment steps", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: StepTypeEnrichment}, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 2)
	})

	t.Run("Should require input plus schema or rules on validation steps", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: StepTypeValidation}, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 2)
		step := &Step{ID: "s1", Name: "s", Type: StepTypeValidation, Input: "doc", Rules: []any{"r"}}
		assert.Empty(t, ValidateStep(step, idSet("s1"), "steps[0]"))
	})

	t.Run("Should require left, right and operation on comparison steps", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: StepTypeComparison}, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 3)
	})

	t.Run("Should require workflowId or workflowSteps plus inputs on sub-workflows", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: StepTypeSubWorkflow}, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 2)
		step := &Step{ID: "s1", Name: "s", Type: StepTypeSubWorkflow, WorkflowID: "wf-2", Inputs: map[string]any{}}
		assert.Empty(t, ValidateStep(step, idSet("s1"), "steps[0]"))
	})

	t.Run("Should require approvers, approvalType and title on human approvals", func(t *testing.T) {
		errs := ValidateStep(&Step{ID: "s1", Name: "s", Type: StepTypeHumanApproval, Approvers: []string{}}, idSet("s1"), "steps[0]")
		assert.Len(t, errs, 3)
	})

	t.Run("Should dispatch output_schema requirements on its type", func(t *testing.T) {
		base := Step{ID: "s1", Name: "s", Type: StepTypeDeterministicExtraction, Input: "doc"}

		object := base
		object.OutputSchema = &OutputSchema{Type: "object"}
		errs := ValidateStep(&object, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "requires fields")

		array := base
		array.OutputSchema = &OutputSchema{Type: "array"}
		errs = ValidateStep(&array, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "requires items.fields")

		str := base
		str.OutputSchema = &OutputSchema{Type: "string"}
		errs = ValidateStep(&str, idSet("s1"), "steps[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "requires description")

		valid := base
		valid.OutputSchema = &OutputSchema{Type: "string", Description: "a summary"}
		assert.Empty(t, ValidateStep(&valid, idSet("s1"), "steps[0]"))
	})

	t.Run("Should not require a prompt on ai_processing or llm_decision", func(t *testing.T) {
		for _, typ := range []StepType{StepTypeAIProcessing, StepTypeLLMDecision} {
			assert.Empty(t, ValidateStep(&Step{ID: "s1", Name: "s", Type: typ}, idSet("s1"), "steps[0]"))
		}
	})
}

func TestValidateStep_Recursion(t *testing.T) {
	t.Run("Should validate nested children with index-suffixed paths", func(t *testing.T) {
		step := &Step{
			ID: "loop1", Name: "loop", Type: StepTypeLoop, IterateOver: "items",
			LoopSteps: []Step{
				{ID: "child1", Name: "child", Type: StepTypeAction, Plugin: "email", Action: "send"},
				{ID: "child2", Name: "broken", Type: StepTypeAction},
			},
		}
		errs := ValidateStep(step, idSet("loop1", "child1", "child2"), "steps[0]")
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0], "steps[0].loopSteps[1]")
	})

	t.Run("Should recurse into scatter steps", func(t *testing.T) {
		step := &Step{
			ID: "sg", Name: "sg", Type: StepTypeScatterGather,
			Scatter: &Scatter{Input: "docs", Steps: []Step{{ID: "inner", Name: "inner", Type: StepTypeAction}}},
			Gather:  &Gather{Operation: "merge"},
		}
		errs := ValidateStep(step, idSet("sg", "inner"), "steps[0]")
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0], "steps[0].scatter.steps[0]")
	})
}
