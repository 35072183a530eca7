package systems

// Suppression update tuning. The global level rises while the colony
// presses its capacity and falls as the active clone loses ground.
const (
	nearCapacityRatio = 0.9
	smallCloneRatio   = 0.25
	capacityGain      = 0.02
	rapidDrop         = 0.05
	moderateDrop      = 0.02
	suppressionDecay  = 0.01
)

// SuppressionInputs summarizes the population state the global
// suppression scalar is derived from each tick.
type SuppressionInputs struct {
	Total               int
	Capacity            int
	ActiveCount         int
	ActiveDeclining     bool
	ActivationThreshold float64
}

// UpdateSuppression computes the next global suppression level. Rules in
// precedence order: population near capacity raises it; a declining and
// already small active clone drops it rapidly; a declining but still
// substantial clone drops it moderately; otherwise it relaxes slowly
// toward the activation threshold. The result is clamped to [0,1].
func UpdateSuppression(level float64, in SuppressionInputs) float64 {
	switch {
	case in.Capacity > 0 && float64(in.Total) >= nearCapacityRatio*float64(in.Capacity):
		level += capacityGain
	case in.ActiveDeclining && float64(in.ActiveCount) < smallCloneRatio*float64(in.Capacity):
		level -= rapidDrop
	case in.ActiveDeclining:
		level -= moderateDrop
	default:
		level += (in.ActivationThreshold - level) * suppressionDecay
	}
	return Clamp01(level)
}

// Clamp01 clamps v to [0,1]. Every value used as a Bernoulli parameter
// or suppression level goes through this.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
