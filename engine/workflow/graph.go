package workflow

import "fmt"

// CollectStepIDs walks the whole step tree and returns the set of every step
// ID. All IDs share one flat namespace: a step anywhere in the tree may
// reference a step anywhere else.
func CollectStepIDs(steps []Step) map[string]struct{} {
	ids := make(map[string]struct{})
	collectStepIDs(steps, ids)
	return ids
}

func collectStepIDs(steps []Step, ids map[string]struct{}) {
	for i := range steps {
		step := &steps[i]
		if step.ID != "" {
			ids[step.ID] = struct{}{}
		}
		for _, group := range step.Children() {
			collectStepIDs(group.Steps, ids)
		}
	}
}

// FindDuplicateIDs returns one warning per duplicated step ID, flagged the
// first time an ID's occurrence count goes from one to two so three copies of
// "step1" still produce exactly one message.
func FindDuplicateIDs(steps []Step) []string {
	counts := make(map[string]int)
	var warnings []string
	findDuplicateIDs(steps, counts, &warnings)
	return warnings
}

func findDuplicateIDs(steps []Step, counts map[string]int, warnings *[]string) {
	for i := range steps {
		step := &steps[i]
		if step.ID != "" {
			counts[step.ID]++
			if counts[step.ID] == 2 {
				*warnings = append(*warnings, fmt.Sprintf("duplicate step ID %q", step.ID))
			}
		}
		for _, group := range step.Children() {
			findDuplicateIDs(group.Steps, counts, warnings)
		}
	}
}
