// Package systems provides the simulation logic that operates on component values.
package systems

import (
	"math/rand"

	"github.com/pthm-cable/clonal/components"
)

// LifecycleParams bundles the aging thresholds shared by all cells.
type LifecycleParams struct {
	DivisionThreshold   float64 // fraction of MaxAge ending DIVIDING
	SenescenceThreshold float64 // fraction of MaxAge entering SENESCENT
	SenescentAging      int32   // aging multiplier once senescent
}

// AgeCell advances a cell by one frame and applies at most one forward
// transition. Senescent cells age at an accelerated rate. Returns the
// transition endpoints and whether a transition occurred.
func AgeCell(c *components.Cell, p LifecycleParams) (from, to components.LifecycleState, changed bool) {
	if c.State == components.StateSenescent {
		c.Age += p.SenescentAging
	} else {
		c.Age++
	}

	switch c.State {
	case components.StateDividing:
		if float64(c.Age) > float64(c.MaxAge)*p.DivisionThreshold || c.DivisionCount >= c.DivisionsLeft {
			c.State = components.StateNonDividing
			c.CanDivide = false
			return components.StateDividing, components.StateNonDividing, true
		}
	case components.StateNonDividing:
		if float64(c.Age) > float64(c.MaxAge)*p.SenescenceThreshold {
			c.State = components.StateSenescent
			return components.StateNonDividing, components.StateSenescent, true
		}
	}

	return c.State, c.State, false
}

// ForceSenescent drives a cell directly to SENESCENT from any state.
// Homeostasis mechanisms use this; the forward-only rule does not apply
// to forced transitions. Returns false if the cell is already senescent.
func ForceSenescent(c *components.Cell) (from components.LifecycleState, changed bool) {
	if c.State == components.StateSenescent {
		return c.State, false
	}
	from = c.State
	c.State = components.StateSenescent
	c.CanDivide = false
	return from, true
}

// DivisionParams bundles the parameters of the division contract.
type DivisionParams struct {
	CooldownFrames int32
	MaxAgeBase     int
	MaxAgeJitter   float64
}

// Divide executes the division contract. It fails (no offspring) unless
// the parent is DIVIDING, flagged divisible, off cooldown, and under its
// lifetime cap; failures are expected transient conditions, not errors.
// On success the parent's count and cooldown are updated and the child
// inherits the clone and generation with one fewer division remaining.
func Divide(parent *components.Cell, childID uint32, p DivisionParams, rng *rand.Rand) (components.Cell, bool) {
	if !parent.DivisionReady() {
		return components.Cell{}, false
	}

	parent.DivisionCount++
	parent.DivisionCooldown = p.CooldownFrames

	left := parent.DivisionsLeft - 1
	child := components.Cell{
		ID:            childID,
		Clone:         parent.Clone,
		Generation:    parent.Generation,
		MaxAge:        JitteredMaxAge(p.MaxAgeBase, p.MaxAgeJitter, rng),
		State:         components.StateDividing,
		DivisionsLeft: left,
		CanDivide:     left > 0,
	}
	return child, true
}

// JitteredMaxAge returns a per-cell lifespan jittered around the baseline.
func JitteredMaxAge(base int, jitter float64, rng *rand.Rand) int32 {
	j := (rng.Float64()*2 - 1) * jitter
	age := int32(float64(base) * (1 + j))
	if age < 1 {
		age = 1
	}
	return age
}
