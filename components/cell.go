// Package components defines ECS components for the simulation.
package components

// Clone identifies one of the three cell lineages.
type Clone uint8

const (
	CloneRed Clone = iota
	CloneGreen
	CloneBlue
	NumClones = 3
)

// String returns the clone's symbolic label.
func (c Clone) String() string {
	switch c {
	case CloneRed:
		return "red"
	case CloneGreen:
		return "green"
	case CloneBlue:
		return "blue"
	}
	return "unknown"
}

// Clones lists all clone labels in fixed order.
func Clones() [NumClones]Clone {
	return [NumClones]Clone{CloneRed, CloneGreen, CloneBlue}
}

// LifecycleState is a cell's position in the aging state machine.
// Transitions only move forward; removal is terminal and not a state.
type LifecycleState uint8

const (
	StateDividing LifecycleState = iota
	StateNonDividing
	StateSenescent
)

// String returns the state name.
func (s LifecycleState) String() string {
	switch s {
	case StateDividing:
		return "dividing"
	case StateNonDividing:
		return "non_dividing"
	case StateSenescent:
		return "senescent"
	}
	return "unknown"
}

// Cell holds a single organism's lifecycle state.
// All countdowns are frame counters decremented once per tick, never
// wall-clock timers, so runs replay exactly from a fixed seed.
type Cell struct {
	ID         uint32
	Clone      Clone
	Generation uint32

	Age    int32
	MaxAge int32 // jittered per cell at creation

	State LifecycleState

	DivisionsLeft    int
	DivisionCount    int
	DivisionCooldown int32 // frames until next division permitted
	CanDivide        bool

	// TransitionFlash is armed on every state transition and counted
	// down by the lifecycle stage; rendering collaborators consume it.
	TransitionFlash int32
}

// Alive reports whether the cell is still within its lifespan.
// Senescent cells age at an accelerated rate before crossing MaxAge.
func (c *Cell) Alive() bool {
	return c.Age <= c.MaxAge
}

// DivisionReady reports whether the division contract's local guards
// hold. Population capacity is checked by the lifecycle manager.
func (c *Cell) DivisionReady() bool {
	return c.State == StateDividing &&
		c.CanDivide &&
		c.DivisionCooldown == 0 &&
		c.DivisionCount < c.DivisionsLeft
}
