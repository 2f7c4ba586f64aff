package workflow

import (
	"fmt"
	"strings"
)

// Result is the outcome of a structural validation pass. Errors and warnings
// are returned as data, never as error values: the caller is typically a
// regeneration loop that re-prompts the LLM with the full list, so a single
// pass must surface everything wrong at once.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateStructure is the structural gate for LLM-generated workflows. It
// composes the step schema validator, graph-reference checks, duplicate-ID
// detection, the nesting-depth guard and efficiency advisories. Warnings
// never affect validity.
func ValidateStructure(steps []Step) *Result {
	result := &Result{Errors: []string{}, Warnings: []string{}}
	if len(steps) == 0 {
		result.Errors = append(result.Errors, "workflow must contain at least one step")
		return result
	}
	allIDs := CollectStepIDs(steps)
	for i := range steps {
		path := fmt.Sprintf("steps[%d]", i)
		result.Errors = append(result.Errors, ValidateStep(&steps[i], allIDs, path)...)
	}
	result.Warnings = append(result.Warnings, FindDuplicateIDs(steps)...)
	depthErrs, depthWarns := ValidateNestingDepth(steps, 1)
	result.Errors = append(result.Errors, depthErrs...)
	result.Warnings = append(result.Warnings, depthWarns...)
	result.Warnings = append(result.Warnings, findLoopEfficiencyWarnings(steps, "steps")...)
	result.Warnings = append(result.Warnings, findMixedConditionWarnings(steps, "steps")...)
	result.Valid = len(result.Errors) == 0
	return result
}

// findLoopEfficiencyWarnings flags AI processing steps nested inside loops:
// N iterations imply N separate LLM calls where one batch call would do.
// Purely advisory.
func findLoopEfficiencyWarnings(steps []Step, path string) []string {
	var warnings []string
	for i := range steps {
		step := &steps[i]
		stepPath := fmt.Sprintf("%s[%d]", path, i)
		if step.Type == StepTypeLoop && containsAIProcessing(step.LoopSteps) {
			warnings = append(warnings, fmt.Sprintf(
				"%s: ai_processing inside a loop runs one LLM call per iteration; consider a single batch step", stepPath))
		}
		for _, group := range step.Children() {
			warnings = append(warnings, findLoopEfficiencyWarnings(group.Steps, stepPath+"."+group.Field)...)
		}
	}
	return warnings
}

func containsAIProcessing(steps []Step) bool {
	for i := range steps {
		if steps[i].Type == StepTypeAIProcessing {
			return true
		}
		for _, group := range steps[i].Children() {
			if containsAIProcessing(group.Steps) {
				return true
			}
		}
	}
	return false
}

// findMixedConditionWarnings flags conditions that carry both simple fields
// and logical combinators. Both halves are validated and evaluated, so this
// stays a warning rather than an error, but the shape is ambiguous enough to
// be worth surfacing.
func findMixedConditionWarnings(steps []Step, path string) []string {
	var warnings []string
	for i := range steps {
		step := &steps[i]
		stepPath := fmt.Sprintf("%s[%d]", path, i)
		if step.Condition != nil && step.Condition.IsSimple() && step.Condition.IsComplex() {
			warnings = append(warnings, fmt.Sprintf("%s.condition: mixes simple and logical condition fields", stepPath))
		}
		if step.ExecuteIf != nil && step.ExecuteIf.IsSimple() && step.ExecuteIf.IsComplex() {
			warnings = append(warnings, fmt.Sprintf("%s.executeIf: mixes simple and logical condition fields", stepPath))
		}
		for _, group := range step.Children() {
			warnings = append(warnings, findMixedConditionWarnings(group.Steps, stepPath+"."+group.Field)...)
		}
	}
	return warnings
}

// -----------------------------------------------------------------------------
// User-facing result
// -----------------------------------------------------------------------------

// UserResult carries a short actionable phrasing for end users alongside the
// technical error list kept for logging and regeneration.
type UserResult struct {
	Valid           bool     `json:"valid"`
	UserMessage     string   `json:"userMessage,omitempty"`
	TechnicalErrors []string `json:"technicalErrors,omitempty"`
}

// ValidateWithUserMessage validates the workflow and, on failure, translates
// the first matching technical error into a user-facing phrasing. The
// translation is a pattern-match heuristic over the error text, not an
// exhaustive mapping.
func ValidateWithUserMessage(steps []Step) *UserResult {
	result := ValidateStructure(steps)
	if result.Valid {
		return &UserResult{Valid: true}
	}
	return &UserResult{
		Valid:           false,
		UserMessage:     userMessageFor(result.Errors),
		TechnicalErrors: result.Errors,
	}
}

func userMessageFor(errs []string) string {
	for _, err := range errs {
		switch {
		case strings.Contains(err, "nesting depth"):
			return "Your automation is nested too deeply. Try to simplify it into fewer levels."
		case strings.Contains(err, "unknown step type"):
			return "Part of your automation used an unsupported step. Try rephrasing your request."
		case strings.Contains(err, "references unknown step"):
			return "Some steps in your automation point at steps that don't exist. Try rephrasing your request."
		case strings.Contains(err, "condition"):
			return "A condition in your automation is incomplete. Try describing the condition more precisely."
		case strings.Contains(err, "requires"):
			return "Some steps in your automation are missing details. Try describing what each step should do."
		}
	}
	return "The generated automation is invalid. Try rephrasing your request."
}
