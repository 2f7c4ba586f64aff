package workflow

import (
	"fmt"
)

// TransformOperations is the allowlist for transform steps.
var TransformOperations = map[string]struct{}{
	"map":            {},
	"filter":         {},
	"reduce":         {},
	"sort":           {},
	"group_by":       {},
	"flatten":        {},
	"merge":          {},
	"format":         {},
	"aggregate":      {},
	"extract_fields": {},
}

// ValidateStep checks one step node for structural correctness and returns
// every problem found: universal fields, dangling references, the executeIf
// guard, and the type-specific required fields. Nested child steps are
// validated recursively with the path suffixed by array index; recursion
// continues regardless of errors so one pass reports everything wrong.
//
// allIDs is the flat namespace of every step ID in the workflow (see
// CollectStepIDs) — cross-references may point anywhere in the tree.
func ValidateStep(step *Step, allIDs map[string]struct{}, path string) []string {
	if step.Type == "" {
		// nothing else can be checked without a type
		return []string{fmt.Sprintf("%s: step type is required", path)}
	}
	var errs []string
	if step.ID == "" {
		errs = append(errs, fmt.Sprintf("%s: step id is required", path))
	}
	if step.Name == "" {
		errs = append(errs, fmt.Sprintf("%s: step name is required", path))
	}
	for i, dep := range step.Dependencies {
		if _, ok := allIDs[dep]; !ok {
			errs = append(errs, fmt.Sprintf("%s: dependencies[%d] references unknown step %q", path, i, dep))
		}
	}
	if step.ExecuteIf != nil {
		errs = append(errs, ValidateCondition(step.ExecuteIf, path+".executeIf")...)
	}
	errs = append(errs, validateStepPayload(step, allIDs, path)...)
	for _, group := range step.Children() {
		for i := range group.Steps {
			childPath := fmt.Sprintf("%s.%s[%d]", path, group.Field, i)
			errs = append(errs, ValidateStep(&group.Steps[i], allIDs, childPath)...)
		}
	}
	return errs
}

func validateStepPayload(step *Step, allIDs map[string]struct{}, path string) []string {
	if _, ok := knownStepTypes[step.Type]; !ok {
		return []string{fmt.Sprintf("%s: unknown step type %q", path, step.Type)}
	}
	switch step.Type {
	case StepTypeAction:
		return validateActionStep(step, path)
	case StepTypeConditional:
		return validateConditionalStep(step, allIDs, path)
	case StepTypeLoop:
		return validateLoopStep(step, path)
	case StepTypeParallelGroup, StepTypeParallel:
		return validateParallelStep(step, path)
	case StepTypeSwitch:
		return validateSwitchStep(step, allIDs, path)
	case StepTypeScatterGather:
		return validateScatterGatherStep(step, path)
	case StepTypeTransform:
		return validateTransformStep(step, path)
	case StepTypeDelay:
		return validateDelayStep(step, path)
	case StepTypeEnrichment:
		return validateEnrichmentStep(step, path)
	case StepTypeValidation:
		return validateValidationStep(step, path)
	case StepTypeComparison:
		return validateComparisonStep(step, path)
	case StepTypeSubWorkflow:
		return validateSubWorkflowStep(step, path)
	case StepTypeHumanApproval:
		return validateHumanApprovalStep(step, path)
	case StepTypeDeterministicExtraction:
		return validateDeterministicExtractionStep(step, path)
	default:
		// ai_processing / llm_decision: prompt and params are optional
		return nil
	}
}

func validateActionStep(step *Step, path string) []string {
	var errs []string
	if step.Plugin == "" {
		errs = append(errs, fmt.Sprintf("%s: action step requires plugin", path))
	}
	if step.Action == "" {
		errs = append(errs, fmt.Sprintf("%s: action step requires action", path))
	}
	return errs
}

func validateConditionalStep(step *Step, allIDs map[string]struct{}, path string) []string {
	var errs []string
	if step.Condition == nil {
		errs = append(errs, fmt.Sprintf("%s: conditional step requires condition", path))
	} else {
		errs = append(errs, ValidateCondition(step.Condition, path+".condition")...)
	}
	if step.TrueBranch != "" {
		if _, ok := allIDs[step.TrueBranch]; !ok {
			errs = append(errs, fmt.Sprintf("%s: trueBranch references unknown step %q", path, step.TrueBranch))
		}
	}
	if step.FalseBranch != "" {
		if _, ok := allIDs[step.FalseBranch]; !ok {
			errs = append(errs, fmt.Sprintf("%s: falseBranch references unknown step %q", path, step.FalseBranch))
		}
	}
	return errs
}

func validateLoopStep(step *Step, path string) []string {
	var errs []string
	if step.IterateOver == "" {
		errs = append(errs, fmt.Sprintf("%s: loop step requires iterateOver", path))
	}
	if step.LoopSteps == nil {
		errs = append(errs, fmt.Sprintf("%s: loop step requires loopSteps array", path))
	}
	if step.MaxIterations != nil && *step.MaxIterations <= 0 {
		errs = append(errs, fmt.Sprintf("%s: maxIterations must be a positive number", path))
	}
	return errs
}

func validateParallelStep(step *Step, path string) []string {
	if step.Steps == nil {
		return []string{fmt.Sprintf("%s: parallel step requires steps array", path)}
	}
	return nil
}

func validateSwitchStep(step *Step, allIDs map[string]struct{}, path string) []string {
	var errs []string
	if step.Evaluate == "" {
		errs = append(errs, fmt.Sprintf("%s: switch step requires evaluate", path))
	}
	if step.Cases == nil {
		errs = append(errs, fmt.Sprintf("%s: switch step requires cases", path))
	}
	for caseKey, targets := range step.Cases {
		for i, target := range targets {
			if _, ok := allIDs[target]; !ok {
				errs = append(errs, fmt.Sprintf("%s: cases[%q][%d] references unknown step %q", path, caseKey, i, target))
			}
		}
	}
	for i, target := range step.Default {
		if _, ok := allIDs[target]; !ok {
			errs = append(errs, fmt.Sprintf("%s: default[%d] references unknown step %q", path, i, target))
		}
	}
	return errs
}

func validateScatterGatherStep(step *Step, path string) []string {
	var errs []string
	if step.Scatter == nil {
		errs = append(errs, fmt.Sprintf("%s: scatter_gather step requires scatter", path))
	} else {
		if step.Scatter.Input == "" {
			errs = append(errs, fmt.Sprintf("%s: scatter_gather step requires scatter.input", path))
		}
		if step.Scatter.Steps == nil {
			errs = append(errs, fmt.Sprintf("%s: scatter_gather step requires scatter.steps array", path))
		}
	}
	if step.Gather == nil || step.Gather.Operation == "" {
		errs = append(errs, fmt.Sprintf("%s: scatter_gather step requires gather.operation", path))
	}
	return errs
}

func validateTransformStep(step *Step, path string) []string {
	var errs []string
	if step.Operation == "" {
		errs = append(errs, fmt.Sprintf("%s: transform step requires operation", path))
	} else if _, ok := TransformOperations[step.Operation]; !ok {
		errs = append(errs, fmt.Sprintf("%s: unsupported transform operation %q", path, step.Operation))
	}
	if step.Config == nil {
		errs = append(errs, fmt.Sprintf("%s: transform step requires config", path))
	}
	return errs
}

func validateDelayStep(step *Step, path string) []string {
	if step.Duration == nil {
		return []string{fmt.Sprintf("%s: delay step requires duration", path)}
	}
	if *step.Duration < 0 {
		return []string{fmt.Sprintf("%s: duration must be a non-negative number", path)}
	}
	return nil
}

func validateEnrichmentStep(step *Step, path string) []string {
	var errs []string
	if step.Sources == nil {
		errs = append(errs, fmt.Sprintf("%s: enrichment step requires sources array", path))
	}
	if step.Strategy == "" {
		errs = append(errs, fmt.Sprintf("%s: enrichment step requires strategy", path))
	}
	return errs
}

func validateValidationStep(step *Step, path string) []string {
	var errs []string
	if step.Input == "" {
		errs = append(errs, fmt.Sprintf("%s: validation step requires input", path))
	}
	if step.Schema == nil && step.Rules == nil {
		errs = append(errs, fmt.Sprintf("%s: validation step requires schema or rules", path))
	}
	return errs
}

func validateComparisonStep(step *Step, path string) []string {
	var errs []string
	if step.Left == nil {
		errs = append(errs, fmt.Sprintf("%s: comparison step requires left", path))
	}
	if step.Right == nil {
		errs = append(errs, fmt.Sprintf("%s: comparison step requires right", path))
	}
	if step.Operation == "" {
		errs = append(errs, fmt.Sprintf("%s: comparison step requires operation", path))
	}
	return errs
}

func validateSubWorkflowStep(step *Step, path string) []string {
	var errs []string
	if step.WorkflowID == "" && step.WorkflowSteps == nil {
		errs = append(errs, fmt.Sprintf("%s: sub_workflow step requires workflowId or workflowSteps", path))
	}
	if step.Inputs == nil {
		errs = append(errs, fmt.Sprintf("%s: sub_workflow step requires inputs", path))
	}
	return errs
}

func validateHumanApprovalStep(step *Step, path string) []string {
	var errs []string
	if len(step.Approvers) == 0 {
		errs = append(errs, fmt.Sprintf("%s: human_approval step requires a non-empty approvers array", path))
	}
	if step.ApprovalType == "" {
		errs = append(errs, fmt.Sprintf("%s: human_approval step requires approvalType", path))
	}
	if step.Title == "" {
		errs = append(errs, fmt.Sprintf("%s: human_approval step requires title", path))
	}
	return errs
}

func validateDeterministicExtractionStep(step *Step, path string) []string {
	var errs []string
	if step.Input == "" {
		errs = append(errs, fmt.Sprintf("%s: deterministic_extraction step requires input", path))
	}
	if schema := step.OutputSchema; schema != nil {
		switch schema.Type {
		case "object":
			if schema.Fields == nil {
				errs = append(errs, fmt.Sprintf("%s: output_schema of type object requires fields", path))
			}
		case "array":
			if schema.Items == nil || schema.Items.Fields == nil {
				errs = append(errs, fmt.Sprintf("%s: output_schema of type array requires items.fields", path))
			}
		case "string":
			if schema.Description == "" {
				errs = append(errs, fmt.Sprintf("%s: output_schema of type string requires description", path))
			}
		default:
			errs = append(errs, fmt.Sprintf("%s: output_schema type must be object, array or string, got %q", path, schema.Type))
		}
	}
	return errs
}
