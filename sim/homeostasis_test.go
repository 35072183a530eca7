package sim

import (
	"testing"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/telemetry"
)

func TestHomeostasisPassesAreStaggered(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 1)

	sawBoundary, sawCrowding, sawBalance := false, false, false
	for tick := int32(0); tick < 5400; tick++ {
		s.tick = tick
		b, c, g := s.boundaryPassDue(), s.crowdingPassDue(), s.balancePassDue()
		if b && c && g {
			t.Fatalf("tick %d: all three control passes due on the same frame", tick)
		}
		sawBoundary = sawBoundary || b
		sawCrowding = sawCrowding || c
		sawBalance = sawBalance || g
	}

	if !sawBoundary || !sawCrowding || !sawBalance {
		t.Errorf("passes due over 5400 ticks = boundary:%v crowding:%v balance:%v, want all",
			sawBoundary, sawCrowding, sawBalance)
	}
}

func TestCloneBalanceRaisesThresholdForDecliningClone(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 1)

	// No clone reaches the dominance share; blue has been shrinking.
	s.cloneCounts = [components.NumClones]int{30, 30, 24}
	for i := 0; i < 12; i++ {
		s.histories[components.CloneBlue].Push(float64(60 - 3*i))
	}

	blueBefore := s.thresholds[components.CloneBlue]
	redBefore := s.thresholds[components.CloneRed]
	s.applyCloneBalance()

	if s.thresholds[components.CloneBlue] <= blueBefore {
		t.Errorf("declining clone threshold = %v, want raised above %v",
			s.thresholds[components.CloneBlue], blueBefore)
	}
	if s.thresholds[components.CloneRed] != redBefore {
		t.Errorf("steady clone threshold = %v, want unchanged %v",
			s.thresholds[components.CloneRed], redBefore)
	}
}

func TestCloneBalanceRaisesThresholdForSenescentClone(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 1)

	s.cloneCounts = [components.NumClones]int{30, 30, 20}
	s.cloneStateCounts[components.CloneBlue][components.StateSenescent] = 15

	before := s.thresholds[components.CloneBlue]
	s.applyCloneBalance()

	if s.thresholds[components.CloneBlue] <= before {
		t.Errorf("senescence-heavy clone threshold = %v, want raised above %v",
			s.thresholds[components.CloneBlue], before)
	}
}

func TestCloneBalanceSuppressesDominantClone(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 1)

	// Red holds 60% of the population, over the 40% dominance share.
	s.cloneCounts = [components.NumClones]int{60, 20, 20}

	redBefore := s.thresholds[components.CloneRed]
	greenBefore := s.thresholds[components.CloneGreen]
	blueBefore := s.thresholds[components.CloneBlue]
	s.applyCloneBalance()

	if s.thresholds[components.CloneRed] >= redBefore {
		t.Errorf("dominant clone threshold = %v, want lowered below %v",
			s.thresholds[components.CloneRed], redBefore)
	}
	if s.thresholds[components.CloneGreen] <= greenBefore {
		t.Errorf("minority clone threshold = %v, want raised above %v",
			s.thresholds[components.CloneGreen], greenBefore)
	}
	if s.thresholds[components.CloneBlue] <= blueBefore {
		t.Errorf("minority clone threshold = %v, want raised above %v",
			s.thresholds[components.CloneBlue], blueBefore)
	}
}

func TestRateAdjustmentReportsBothRates(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 1)
	s.DrainEvents()

	// One cell against a target of 80 drives both rates to their extremes.
	s.updateHomeostasis()

	if got := s.DivisionProbability(); got != cfg.Division.MaxProbability {
		t.Errorf("DivisionProbability() = %v, want %v", got, cfg.Division.MaxProbability)
	}

	var found bool
	for _, e := range s.DrainEvents() {
		if e.Type != telemetry.EventRatesAdjusted {
			continue
		}
		found = true
		if e.Value != cfg.Division.MaxProbability {
			t.Errorf("division rate = %v, want %v", e.Value, cfg.Division.MaxProbability)
		}
		if e.AuxValue != cfg.Homeostasis.MinDeathRate {
			t.Errorf("death rate = %v, want %v", e.AuxValue, cfg.Homeostasis.MinDeathRate)
		}
	}
	if !found {
		t.Fatal("no rate adjustment event emitted")
	}
}
