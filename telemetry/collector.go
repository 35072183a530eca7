package telemetry

import "github.com/pthm-cable/clonal/components"

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks int32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	births          [components.NumClones]int
	deaths          [components.NumClones]int
	senescentDeaths int
	boundaryForced  int
	crowdingForced  int
	pressureForced  int
	successions     int
	activations     int
	deactivations   int

	lifespanSum    int64
	lifespanDeaths int
}

// NewCollector creates a stats collector flushing every windowTicks frames.
func NewCollector(windowTicks int32) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// RecordBirth records a division or seed producing a live cell.
func (c *Collector) RecordBirth(clone components.Clone) {
	c.births[clone]++
}

// RecordDeath records a cell removal. senescent marks deaths from the
// senescent state rather than from exhausting a dividing lifespan.
func (c *Collector) RecordDeath(clone components.Clone, senescent bool) {
	c.deaths[clone]++
	if senescent {
		c.senescentDeaths++
	}
}

// RecordLifespan records the age in frames a cell reached before removal.
func (c *Collector) RecordLifespan(age int32) {
	c.lifespanSum += int64(age)
	c.lifespanDeaths++
}

// RecordForcedSenescence records a population-control senescence forcing
// by mechanism name.
func (c *Collector) RecordForcedSenescence(cause string) {
	switch cause {
	case CauseBoundary:
		c.boundaryForced++
	case CauseCrowding:
		c.crowdingForced++
	case CausePressure:
		c.pressureForced++
	}
}

// RecordSuccession records a clone succession.
func (c *Collector) RecordSuccession() {
	c.successions++
}

// RecordActivation records a stem activation.
func (c *Collector) RecordActivation() {
	c.activations++
}

// RecordDeactivation records a stem deactivation.
func (c *Collector) RecordDeactivation() {
	c.deactivations++
}

// Forcing mechanism names used in events and counters.
const (
	CauseBoundary = "boundary"
	CauseCrowding = "crowding"
	CausePressure = "clone_pressure"
)

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Census holds the population counts sampled at flush time.
type Census struct {
	CloneCounts [components.NumClones]int
	Dividing    int
	NonDividing int
	Senescent   int

	StemCounts   [components.NumClones]int
	DormantStems int
	ActiveStems  int

	ActiveClone      components.Clone
	SuppressionLevel float64
	DivisionRate     float64
	MeanGeneration   float64
	MeanAgeFraction  float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, census Census) WindowStats {
	total := census.CloneCounts[0] + census.CloneCounts[1] + census.CloneCounts[2]

	meanLifespan := 0.0
	if c.lifespanDeaths > 0 {
		meanLifespan = float64(c.lifespanSum) / float64(c.lifespanDeaths)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Total:       total,
		RedCount:    census.CloneCounts[components.CloneRed],
		GreenCount:  census.CloneCounts[components.CloneGreen],
		BlueCount:   census.CloneCounts[components.CloneBlue],
		Dividing:    census.Dividing,
		NonDividing: census.NonDividing,
		Senescent:   census.Senescent,

		DormantStems: census.DormantStems,
		ActiveStems:  census.ActiveStems,

		RedBirths:   c.births[components.CloneRed],
		GreenBirths: c.births[components.CloneGreen],
		BlueBirths:  c.births[components.CloneBlue],
		RedDeaths:   c.deaths[components.CloneRed],
		GreenDeaths: c.deaths[components.CloneGreen],
		BlueDeaths:  c.deaths[components.CloneBlue],

		SenescentDeaths: c.senescentDeaths,
		MeanLifespan:    meanLifespan,
		BoundaryForced:  c.boundaryForced,
		CrowdingForced:  c.crowdingForced,
		PressureForced:  c.pressureForced,
		Successions:     c.successions,
		Activations:     c.activations,
		Deactivations:   c.deactivations,

		ActiveClone:      census.ActiveClone.String(),
		SuppressionLevel: census.SuppressionLevel,
		DivisionRate:     census.DivisionRate,
		MeanGeneration:   census.MeanGeneration,
		MeanAgeFraction:  census.MeanAgeFraction,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = [components.NumClones]int{}
	c.deaths = [components.NumClones]int{}
	c.senescentDeaths = 0
	c.boundaryForced = 0
	c.crowdingForced = 0
	c.pressureForced = 0
	c.successions = 0
	c.activations = 0
	c.deactivations = 0
	c.lifespanSum = 0
	c.lifespanDeaths = 0

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int32 {
	return c.windowTicks
}
