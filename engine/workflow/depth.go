package workflow

import "fmt"

// MaxNestingDepth is the hard ceiling for nested step containers. The strict
// generation schema only expands this many levels, so deeper nesting was
// never representable and is rejected.
const MaxNestingDepth = 5

// ValidateNestingDepth walks the step tree tracking depth. Depth equal to the
// limit yields a warning; depth beyond the limit yields an error and stops
// descending, so a pathological workflow cannot cause unbounded validation
// work. Each nested container adds exactly one level regardless of its kind.
func ValidateNestingDepth(steps []Step, currentDepth int) (errors, warnings []string) {
	if currentDepth > MaxNestingDepth {
		return []string{fmt.Sprintf("workflow exceeds maximum nesting depth of %d", MaxNestingDepth)}, nil
	}
	if currentDepth == MaxNestingDepth {
		warnings = append(warnings, fmt.Sprintf("workflow reaches the maximum nesting depth of %d", MaxNestingDepth))
	}
	for i := range steps {
		for _, group := range steps[i].Children() {
			childErrs, childWarns := ValidateNestingDepth(group.Steps, currentDepth+1)
			errors = append(errors, childErrs...)
			warnings = append(warnings, childWarns...)
		}
	}
	return errors, warnings
}
