package telemetry

import (
	"testing"

	"github.com/pthm-cable/clonal/components"
)

func TestCollectorShouldFlush(t *testing.T) {
	c := NewCollector(60)

	if c.ShouldFlush(59) {
		t.Error("should not flush before the window closes")
	}
	if !c.ShouldFlush(60) {
		t.Error("should flush at the window boundary")
	}

	c.Flush(60, Census{})
	if c.ShouldFlush(100) {
		t.Error("flush should start a new window")
	}
	if !c.ShouldFlush(120) {
		t.Error("the next window should close 60 ticks later")
	}
}

func TestCollectorCountsAndResets(t *testing.T) {
	c := NewCollector(60)

	c.RecordBirth(components.CloneRed)
	c.RecordBirth(components.CloneRed)
	c.RecordBirth(components.CloneBlue)
	c.RecordDeath(components.CloneGreen, true)
	c.RecordDeath(components.CloneGreen, false)
	c.RecordForcedSenescence(CauseBoundary)
	c.RecordForcedSenescence(CauseCrowding)
	c.RecordForcedSenescence(CausePressure)
	c.RecordSuccession()
	c.RecordActivation()
	c.RecordDeactivation()

	census := Census{
		CloneCounts:      [components.NumClones]int{10, 20, 30},
		Dividing:         25,
		ActiveClone:      components.CloneGreen,
		SuppressionLevel: 0.42,
	}
	stats := c.Flush(60, census)

	if stats.RedBirths != 2 || stats.BlueBirths != 1 || stats.GreenBirths != 0 {
		t.Errorf("births = %d/%d/%d", stats.RedBirths, stats.GreenBirths, stats.BlueBirths)
	}
	if stats.GreenDeaths != 2 || stats.SenescentDeaths != 1 {
		t.Errorf("deaths = %d senescent = %d", stats.GreenDeaths, stats.SenescentDeaths)
	}
	if stats.BoundaryForced != 1 || stats.CrowdingForced != 1 || stats.PressureForced != 1 {
		t.Error("forced senescence counters wrong")
	}
	if stats.Successions != 1 || stats.Activations != 1 || stats.Deactivations != 1 {
		t.Error("succession counters wrong")
	}
	if stats.Total != 60 || stats.RedCount != 10 {
		t.Errorf("population = %d red = %d, want 60/10", stats.Total, stats.RedCount)
	}
	if stats.ActiveClone != "green" || stats.SuppressionLevel != 0.42 {
		t.Errorf("control state = %s/%v", stats.ActiveClone, stats.SuppressionLevel)
	}

	// Counters reset; census values do not carry over.
	empty := c.Flush(120, Census{})
	if empty.RedBirths != 0 || empty.GreenDeaths != 0 || empty.Successions != 0 {
		t.Error("flush should reset window counters")
	}
	if empty.WindowStartTick != 60 || empty.WindowEndTick != 120 {
		t.Errorf("window = [%d, %d], want [60, 120]", empty.WindowStartTick, empty.WindowEndTick)
	}
}

func TestCollectorMeanLifespan(t *testing.T) {
	c := NewCollector(60)

	c.RecordLifespan(100)
	c.RecordLifespan(200)

	stats := c.Flush(60, Census{})
	if stats.MeanLifespan != 150 {
		t.Errorf("mean lifespan = %v, want 150", stats.MeanLifespan)
	}

	// No deaths in the next window reports zero, not a stale mean.
	empty := c.Flush(120, Census{})
	if empty.MeanLifespan != 0 {
		t.Errorf("mean lifespan with no deaths = %v, want 0", empty.MeanLifespan)
	}
}

func TestCollectorMinimumWindow(t *testing.T) {
	c := NewCollector(0)
	if c.WindowTicks() != 1 {
		t.Errorf("window = %d, want clamped to 1", c.WindowTicks())
	}
}
