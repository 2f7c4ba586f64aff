package intent

// Intent is a coarse semantic category for a workflow step, used purely to
// pick a token-budget baseline.
type Intent string

const (
	IntentExtract     Intent = "extract"
	IntentSummarize   Intent = "summarize"
	IntentGenerate    Intent = "generate"
	IntentValidate    Intent = "validate"
	IntentSend        Intent = "send"
	IntentTransform   Intent = "transform"
	IntentConditional Intent = "conditional"
)

func (i Intent) String() string {
	return string(i)
}

// All lists every intent, in baseline-table order.
func All() []Intent {
	return []Intent{
		IntentExtract,
		IntentSummarize,
		IntentGenerate,
		IntentValidate,
		IntentSend,
		IntentTransform,
		IntentConditional,
	}
}

// Classification is the ephemeral routing metadata attached to a step before
// budget allocation. It is recomputed per execution and never persisted on
// its own.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Distribution counts classifications per intent.
func Distribution(classifications []Classification) map[Intent]int {
	out := make(map[Intent]int)
	for _, c := range classifications {
		out[c.Intent]++
	}
	return out
}
