// Package telemetry provides population health tracking, succession
// records, windowed stats, and snapshots.
package telemetry

import "github.com/pthm-cable/clonal/components"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventCellCreated EventType = iota
	EventCellDivided
	EventCellStateChanged
	EventCellDied
	EventStemActivated
	EventStemDeactivated
	EventSuccession
	EventSuppressionChanged
	EventThresholdChanged
	EventRatesAdjusted
	EventSenescenceForced
)

// Event represents a single telemetry event. Events are drained by the
// caller each tick; nothing in the simulation reacts to them.
type Event struct {
	Type   EventType
	Tick   int32
	CellID uint32
	Clone  components.Clone

	// Optional fields depending on event type
	TargetID uint32  // parent for divisions
	From     string  // prior state or clone name
	To       string  // new state or clone name
	Value    float64 // suppression level, threshold, division rate, or urgency
	AuxValue float64 // companion value: death rate on rate adjustments
	Cause    string  // trigger reason or forcing mechanism
}

// NewCellCreatedEvent creates an event for a cell seeded outside division.
func NewCellCreatedEvent(tick int32, cellID uint32, clone components.Clone) Event {
	return Event{
		Type:   EventCellCreated,
		Tick:   tick,
		CellID: cellID,
		Clone:  clone,
	}
}

// NewCellDividedEvent creates a division event. The child is the subject,
// the parent goes in TargetID.
func NewCellDividedEvent(tick int32, childID, parentID uint32, clone components.Clone) Event {
	return Event{
		Type:     EventCellDivided,
		Tick:     tick,
		CellID:   childID,
		Clone:    clone,
		TargetID: parentID,
	}
}

// NewCellStateChangedEvent creates a lifecycle transition event.
func NewCellStateChangedEvent(tick int32, cellID uint32, clone components.Clone, from, to components.LifecycleState) Event {
	return Event{
		Type:   EventCellStateChanged,
		Tick:   tick,
		CellID: cellID,
		Clone:  clone,
		From:   from.String(),
		To:     to.String(),
	}
}

// NewCellDiedEvent creates a death event.
func NewCellDiedEvent(tick int32, cellID uint32, clone components.Clone, state components.LifecycleState) Event {
	return Event{
		Type:   EventCellDied,
		Tick:   tick,
		CellID: cellID,
		Clone:  clone,
		From:   state.String(),
	}
}

// NewStemActivatedEvent creates a stem activation event.
func NewStemActivatedEvent(tick int32, cellID uint32, clone components.Clone) Event {
	return Event{
		Type:   EventStemActivated,
		Tick:   tick,
		CellID: cellID,
		Clone:  clone,
	}
}

// NewStemDeactivatedEvent creates a stem deactivation event.
func NewStemDeactivatedEvent(tick int32, cellID uint32, clone components.Clone) Event {
	return Event{
		Type:   EventStemDeactivated,
		Tick:   tick,
		CellID: cellID,
		Clone:  clone,
	}
}

// NewSuccessionEvent creates a clone succession event. Urgency is stored
// in Value, the trigger reason in Cause.
func NewSuccessionEvent(tick int32, oldClone, newClone components.Clone, reason string, urgency int) Event {
	return Event{
		Type:  EventSuccession,
		Tick:  tick,
		Clone: newClone,
		From:  oldClone.String(),
		To:    newClone.String(),
		Value: float64(urgency),
		Cause: reason,
	}
}

// NewSuppressionChangedEvent records a material shift in the global
// suppression level.
func NewSuppressionChangedEvent(tick int32, level float64) Event {
	return Event{
		Type:  EventSuppressionChanged,
		Tick:  tick,
		Value: level,
	}
}

// NewThresholdChangedEvent records a per-clone activation threshold
// adjustment made by the balance pass.
func NewThresholdChangedEvent(tick int32, clone components.Clone, threshold float64) Event {
	return Event{
		Type:  EventThresholdChanged,
		Tick:  tick,
		Clone: clone,
		Value: threshold,
	}
}

// NewRatesAdjustedEvent records a homeostatic rate change. Value carries
// the division probability, AuxValue the death rate.
func NewRatesAdjustedEvent(tick int32, divisionProbability, deathRate float64) Event {
	return Event{
		Type:     EventRatesAdjusted,
		Tick:     tick,
		Value:    divisionProbability,
		AuxValue: deathRate,
	}
}

// NewSenescenceForcedEvent records a cell pushed into senescence by a
// population-control mechanism. Cause names the mechanism.
func NewSenescenceForcedEvent(tick int32, cellID uint32, clone components.Clone, cause string) Event {
	return Event{
		Type:   EventSenescenceForced,
		Tick:   tick,
		CellID: cellID,
		Clone:  clone,
		Cause:  cause,
	}
}
