package systems

import "github.com/pthm-cable/clonal/components"

// Activation progress hysteresis: a stem enters ACTIVATING above the
// enter mark and falls back to DORMANT below the exit mark.
const (
	ActivationEnter = 0.3
	ActivationExit  = 0.2

	progressRate  = 0.01  // per-frame gain at zero suppression
	progressDecay = 0.005 // per-frame loss while suppressed
)

// UpdateDormantStem advances a non-active stem's activation progress
// against its clone's threshold. Suppression strictly below the
// threshold counts as "low"; sitting exactly at it does not. Progress
// reaching 1 wraps to 0 without activating: readiness and selection are
// separate decisions, and only the manager activates.
func UpdateDormantStem(s *components.Stem, threshold float64) (from, to components.StemState, changed bool) {
	if s.State == components.StemActive || s.State == components.StemDepleted {
		return s.State, s.State, false
	}

	if s.SuppressionLevel < threshold {
		s.ActivationProgress += progressRate * (1 - s.SuppressionLevel)
	} else {
		s.ActivationProgress -= progressDecay
	}
	if s.ActivationProgress < 0 {
		s.ActivationProgress = 0
	}
	if s.ActivationProgress >= 1 {
		s.ActivationProgress = 0
	}

	from = s.State
	switch {
	case s.State == components.StemDormant && s.ActivationProgress > ActivationEnter:
		s.State = components.StemActivating
	case s.State == components.StemActivating && s.ActivationProgress < ActivationExit:
		s.State = components.StemDormant
	}
	return from, s.State, from != s.State
}

// RecordDivision charges one division against a stem cell's budget.
// Exhaustion forces the lifecycle to NON_DIVIDING and the stem state to
// DEPLETED in the same call. The budget decrement subsumes the per-cell
// division count, which is reset so the lifetime-cap guard defers to the
// budget. A zero budget here is an invariant violation.
func RecordDivision(c *components.Cell, s *components.Stem) {
	if c.DivisionsLeft <= 0 {
		panic("systems: RecordDivision on a stem cell with no divisions left")
	}
	c.DivisionsLeft--
	c.DivisionCount = 0
	if c.DivisionsLeft == 0 {
		if c.State == components.StateDividing {
			c.State = components.StateNonDividing
		}
		c.CanDivide = false
		s.State = components.StemDepleted
	}
}

// ActivateStem marks a stem cell as belonging to the producing clone,
// restoring its full division budget. Activation is the only path into
// the ACTIVE stem state.
func ActivateStem(c *components.Cell, s *components.Stem, maxDivisions int) {
	s.Active = true
	s.State = components.StemActive
	s.ActivationProgress = 0
	s.SuppressionLevel = 0
	s.MaxDivisions = maxDivisions

	c.DivisionsLeft = maxDivisions
	c.DivisionCount = 0
	if c.State != components.StateSenescent {
		c.State = components.StateDividing
		c.CanDivide = true
	}
}

// DeactivateStem returns a stem cell to dormancy, or depletion if its
// budget is spent. The suppression level starts saturated: the incoming
// clone's dominance is assumed until the smoothed signal says otherwise.
func DeactivateStem(c *components.Cell, s *components.Stem) {
	s.Active = false
	s.ActivationProgress = 0
	s.SuppressionLevel = 1
	if c.DivisionsLeft == 0 {
		s.State = components.StemDepleted
	} else {
		s.State = components.StemDormant
	}
}
