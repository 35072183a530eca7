package components

// StemState is the suppression/activation state machine, independent of
// the inherited lifecycle state. DEPLETED is reachable from any state
// once divisions are exhausted; ACTIVE is entered only by an explicit
// manager decision, never by self-transition.
type StemState uint8

const (
	StemDormant StemState = iota
	StemActivating
	StemActive
	StemDepleted
)

// String returns the stem state name.
func (s StemState) String() string {
	switch s {
	case StemDormant:
		return "dormant"
	case StemActivating:
		return "activating"
	case StemActive:
		return "active"
	case StemDepleted:
		return "depleted"
	}
	return "unknown"
}

// Stem is the optional stem-cell extension of a Cell. Entities carrying
// both Cell and Stem are stem cells; plain cells omit this component.
type Stem struct {
	State  StemState
	Active bool // member of the currently producing clone

	// SuppressionLevel is an inertial moving average of incoming
	// suppression, meaningful for dormant cells only. 1 = fully
	// suppressed.
	SuppressionLevel float64

	// ActivationProgress accumulates while suppression sits below the
	// clone's activation threshold; reset on activation.
	ActivationProgress float64

	MaxDivisions int // per-clone division budget at activation
}

// Suppress folds an incoming suppression strength into the level with
// exponential smoothing. The smoothing keeps single-frame spikes from
// triggering spurious activation.
func (s *Stem) Suppress(strength float64) {
	s.SuppressionLevel = clamp01(s.SuppressionLevel*0.9 + strength*0.1)
}

// ProductionStrength returns the suppression signal an active stem cell
// emits, scaled by remaining division budget and lifecycle state.
func (s *Stem) ProductionStrength(c *Cell) float64 {
	if !s.Active || s.MaxDivisions <= 0 {
		return 0
	}
	strength := float64(c.DivisionsLeft) / float64(s.MaxDivisions)
	switch c.State {
	case StateNonDividing:
		strength *= 0.7
	case StateSenescent:
		strength *= 0.3
	}
	if s.State == StemDepleted {
		strength *= 0.2
	}
	return clamp01(strength)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
