package workflow

// -----------------------------------------------------------------------------
// Step Type
// -----------------------------------------------------------------------------

type StepType string

const (
	StepTypeAction                  StepType = "action"
	StepTypeConditional             StepType = "conditional"
	StepTypeLoop                    StepType = "loop"
	StepTypeParallelGroup           StepType = "parallel_group"
	StepTypeParallel                StepType = "parallel"
	StepTypeSwitch                  StepType = "switch"
	StepTypeScatterGather           StepType = "scatter_gather"
	StepTypeTransform               StepType = "transform"
	StepTypeDelay                   StepType = "delay"
	StepTypeEnrichment              StepType = "enrichment"
	StepTypeValidation              StepType = "validation"
	StepTypeComparison              StepType = "comparison"
	StepTypeSubWorkflow             StepType = "sub_workflow"
	StepTypeHumanApproval           StepType = "human_approval"
	StepTypeDeterministicExtraction StepType = "deterministic_extraction"
	StepTypeAIProcessing            StepType = "ai_processing"
	StepTypeLLMDecision             StepType = "llm_decision"
)

func (t StepType) String() string {
	return string(t)
}

// knownStepTypes is the closed set the generation schema can emit.
var knownStepTypes = map[StepType]struct{}{
	StepTypeAction:                  {},
	StepTypeConditional:             {},
	StepTypeLoop:                    {},
	StepTypeParallelGroup:           {},
	StepTypeParallel:                {},
	StepTypeSwitch:                  {},
	StepTypeScatterGather:           {},
	StepTypeTransform:               {},
	StepTypeDelay:                   {},
	StepTypeEnrichment:              {},
	StepTypeValidation:              {},
	StepTypeComparison:              {},
	StepTypeSubWorkflow:             {},
	StepTypeHumanApproval:           {},
	StepTypeDeterministicExtraction: {},
	StepTypeAIProcessing:            {},
	StepTypeLLMDecision:             {},
}

// -----------------------------------------------------------------------------
// Step
// -----------------------------------------------------------------------------

// Scatter fans an input collection out over parallel sub-executions.
type Scatter struct {
	Input string `json:"input,omitempty"`
	Steps []Step `json:"steps,omitempty"`
}

// Gather recombines scatter results with a single operation.
type Gather struct {
	Operation string `json:"operation,omitempty"`
}

// OutputSchemaItems describes the element shape of an array output schema.
type OutputSchemaItems struct {
	Fields map[string]any `json:"fields,omitempty"`
}

// OutputSchema constrains the output of a deterministic extraction step.
type OutputSchema struct {
	Type        string             `json:"type,omitempty"`
	Fields      map[string]any     `json:"fields,omitempty"`
	Items       *OutputSchemaItems `json:"items,omitempty"`
	Description string             `json:"description,omitempty"`
}

// Step is one node of an LLM-generated workflow. The shape mirrors the
// generation schema: a flat field superset where each step type reads only
// its own slice of fields. Pointer and slice fields distinguish "absent"
// from zero values so the validator can report missing fields precisely.
//
// Steps are created by generation, validated once before persistence, and
// never mutated afterwards except by explicit user edit (which re-triggers
// validation).
type Step struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         StepType   `json:"type"`
	Dependencies []string   `json:"dependencies,omitempty"`
	ExecuteIf    *Condition `json:"executeIf,omitempty"`
	Prompt       string     `json:"prompt,omitempty"`

	// action
	Plugin string         `json:"plugin,omitempty"`
	Action string         `json:"action,omitempty"`
	Params map[string]any `json:"params,omitempty"`

	// conditional
	Condition   *Condition `json:"condition,omitempty"`
	TrueBranch  string     `json:"trueBranch,omitempty"`
	FalseBranch string     `json:"falseBranch,omitempty"`

	// loop
	IterateOver   string `json:"iterateOver,omitempty"`
	LoopSteps     []Step `json:"loopSteps,omitempty"`
	MaxIterations *int   `json:"maxIterations,omitempty"`

	// parallel_group / parallel
	Steps []Step `json:"steps,omitempty"`

	// switch
	Evaluate string              `json:"evaluate,omitempty"`
	Cases    map[string][]string `json:"cases,omitempty"`
	Default  []string            `json:"default,omitempty"`

	// scatter_gather
	Scatter *Scatter `json:"scatter,omitempty"`
	Gather  *Gather  `json:"gather,omitempty"`

	// transform
	Operation string         `json:"operation,omitempty"`
	Config    map[string]any `json:"config,omitempty"`

	// delay
	Duration *float64 `json:"duration,omitempty"`

	// enrichment
	Sources  []any  `json:"sources,omitempty"`
	Strategy string `json:"strategy,omitempty"`

	// validation
	Input  string         `json:"input,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
	Rules  []any          `json:"rules,omitempty"`

	// comparison
	Left  any `json:"left,omitempty"`
	Right any `json:"right,omitempty"`

	// sub_workflow
	WorkflowID    string         `json:"workflowId,omitempty"`
	WorkflowSteps []Step         `json:"workflowSteps,omitempty"`
	Inputs        map[string]any `json:"inputs,omitempty"`

	// human_approval
	Approvers    []string `json:"approvers,omitempty"`
	ApprovalType string   `json:"approvalType,omitempty"`
	Title        string   `json:"title,omitempty"`

	// deterministic_extraction
	OutputSchema *OutputSchema `json:"output_schema,omitempty"`
}

// ChildGroup is one named nested-step container within a step.
type ChildGroup struct {
	Field string
	Steps []Step
}

// Children returns the step's nested-step containers under their schema
// field names. All traversal passes (validation, ID collection, depth
// checking) walk the tree through this single accessor so they cannot
// disagree about which fields nest.
func (s *Step) Children() []ChildGroup {
	var groups []ChildGroup
	if len(s.LoopSteps) > 0 {
		groups = append(groups, ChildGroup{Field: "loopSteps", Steps: s.LoopSteps})
	}
	if len(s.Steps) > 0 {
		groups = append(groups, ChildGroup{Field: "steps", Steps: s.Steps})
	}
	if s.Scatter != nil && len(s.Scatter.Steps) > 0 {
		groups = append(groups, ChildGroup{Field: "scatter.steps", Steps: s.Scatter.Steps})
	}
	if len(s.WorkflowSteps) > 0 {
		groups = append(groups, ChildGroup{Field: "workflowSteps", Steps: s.WorkflowSteps})
	}
	return groups
}

// -----------------------------------------------------------------------------
// Workflow
// -----------------------------------------------------------------------------

// Workflow is the persisted automation: a name plus the top-level step list.
type Workflow struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Steps []Step `json:"workflow_steps"`
}
