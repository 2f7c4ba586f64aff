package core

// -----------------------------------------------------------------------------
// Model Tier
// -----------------------------------------------------------------------------

// Tier is a coarse model-capability bucket used as a dimension for routing
// and historical budget statistics.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierPowerful Tier = "powerful"
)

func (t Tier) String() string {
	return string(t)
}

func (t Tier) IsValid() bool {
	switch t {
	case TierFast, TierBalanced, TierPowerful:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Agent Intensity Score
// -----------------------------------------------------------------------------

// AIS bounds. The score itself is produced by an external provider; this core
// only consumes it as an opaque number within this range.
const (
	AISMin float64 = 0
	AISMax float64 = 10
)

// ClampAIS forces an externally supplied intensity score into the documented
// range so a misbehaving provider cannot blow up budget scaling.
func ClampAIS(score float64) float64 {
	if score < AISMin {
		return AISMin
	}
	if score > AISMax {
		return AISMax
	}
	return score
}
