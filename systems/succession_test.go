package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/clonal/components"
)

// baseInputs returns trigger inputs where nothing fires.
func baseInputs() TriggerInputs {
	return TriggerInputs{
		Total:                80,
		Capacity:             100,
		Suppression:          0.5,
		Threshold:            0.3,
		DyingSignalThreshold: 10,
		CrashRatio:           0.15,
		DeclineRatio:         0.3,
		DeclineSustainFrames: 60,
		NaturalSustainFrames: 120,
	}
}

func TestEvaluateTriggersQuiet(t *testing.T) {
	if _, ok := EvaluateTriggers(baseInputs()); ok {
		t.Error("no trigger should fire on a healthy population")
	}
}

func TestEvaluateTriggers(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*TriggerInputs)
		wantReason  string
		wantUrgency int
	}{
		{
			"population crash",
			func(in *TriggerInputs) { in.Total = 14 },
			ReasonPopulationCrash, 10,
		},
		{
			"stem exhaustion needs low suppression",
			func(in *TriggerInputs) {
				in.ActiveStemsExhausted = true
				in.Suppression = 0.2
			},
			ReasonStemExhaustion, 9,
		},
		{
			"dying signals",
			func(in *TriggerInputs) {
				in.DyingSignals = 10
				in.Suppression = 0.2
			},
			ReasonDyingSignals, 8,
		},
		{
			"senescence wave",
			func(in *TriggerInputs) {
				in.ActiveSenescentRatio = 0.6
				in.ActiveDeclining = true
				in.Suppression = 0.2
			},
			ReasonSenescenceWave, 7,
		},
		{
			"clone decline",
			func(in *TriggerInputs) {
				in.ActiveDeclining = true
				in.ActiveCount = 20
				in.Suppression = 0.2
				in.DeclineSustainedFrames = 61
			},
			ReasonCloneDecline, 6,
		},
		{
			"natural succession",
			func(in *TriggerInputs) {
				in.LowSuppressionFrames = 121
				in.BestDormantProgress = 0.8
			},
			ReasonNaturalSuccession, 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInputs()
			tt.mutate(&in)
			trig, ok := EvaluateTriggers(in)
			if !ok {
				t.Fatal("expected a trigger")
			}
			if trig.Reason != tt.wantReason || trig.Urgency != tt.wantUrgency {
				t.Errorf("trigger = %+v, want %s/%d", trig, tt.wantReason, tt.wantUrgency)
			}
		})
	}
}

func TestEvaluateTriggersPrecedence(t *testing.T) {
	// Everything fires at once; the crash wins.
	in := baseInputs()
	in.Total = 10
	in.Suppression = 0.1
	in.ActiveStemsExhausted = true
	in.DyingSignals = 50
	in.ActiveSenescentRatio = 0.9
	in.ActiveDeclining = true
	in.ActiveCount = 5
	in.DeclineSustainedFrames = 1000
	in.LowSuppressionFrames = 1000
	in.BestDormantProgress = 0.9

	trig, ok := EvaluateTriggers(in)
	if !ok || trig.Reason != ReasonPopulationCrash {
		t.Errorf("trigger = %+v, want population crash first", trig)
	}
}

func TestEvaluateTriggersSuppressionBoundary(t *testing.T) {
	// Suppression exactly at the threshold is not low.
	in := baseInputs()
	in.ActiveStemsExhausted = true
	in.Suppression = 0.3

	if _, ok := EvaluateTriggers(in); ok {
		t.Error("suppression at the threshold should not count as low")
	}
}

func TestSuccessionCooldown(t *testing.T) {
	tests := []struct {
		urgency int
		want    int32
	}{
		{10, 60},
		{9, 72},
		{8, 84},
		{5, 120},
		{1, 168},
	}
	for _, tt := range tests {
		if got := SuccessionCooldown(tt.urgency); got != tt.want {
			t.Errorf("SuccessionCooldown(%d) = %d, want %d", tt.urgency, got, tt.want)
		}
	}
}

func testCandidates() []CloneCandidate {
	return []CloneCandidate{
		{Clone: components.CloneGreen, StemCount: 2, AvgBudgetFraction: 0.4, LastActivated: 100},
		{Clone: components.CloneBlue, StemCount: 1, AvgBudgetFraction: 0.9, LastActivated: 500},
	}
}

func TestSelectNextCloneHealthiest(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := SelectInputs{Total: 20, Capacity: 100, Tick: 1000, Candidates: testCandidates()}

	clone, strategy := SelectNextClone(in, rng)
	if strategy != StrategyHealthiest {
		t.Errorf("strategy = %s, want healthiest below 30%% capacity", strategy)
	}
	if clone != components.CloneBlue {
		t.Errorf("clone = %v, want blue (highest budget fraction)", clone)
	}
}

func TestSelectNextCloneRoundRobin(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := SelectInputs{Total: 90, Capacity: 100, SuccessionCount: 4, Tick: 1000, Candidates: testCandidates()}

	clone, strategy := SelectNextClone(in, rng)
	if strategy != StrategyRoundRobin {
		t.Errorf("strategy = %s, want round robin in an established run", strategy)
	}
	if clone != components.CloneGreen {
		t.Errorf("clone = %v, want green (least recently activated)", clone)
	}
}

func TestSelectNextCloneWeightedRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := SelectInputs{Total: 50, Capacity: 100, Tick: 1000, Candidates: testCandidates()}

	counts := map[components.Clone]int{}
	for i := 0; i < 1000; i++ {
		clone, strategy := SelectNextClone(in, rng)
		if strategy != StrategyWeightedRandom {
			t.Fatalf("strategy = %s, want weighted random at mid capacity", strategy)
		}
		counts[clone]++
	}

	// Green has more stems and a longer idle time, so it should win
	// more often, but both must be reachable.
	if counts[components.CloneGreen] == 0 || counts[components.CloneBlue] == 0 {
		t.Errorf("counts = %v, both clones should be drawn", counts)
	}
	if counts[components.CloneGreen] <= counts[components.CloneBlue] {
		t.Errorf("counts = %v, green should dominate the draw", counts)
	}
}

func TestSelectNextClonePanicsWithoutCandidates(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on empty candidates")
		}
	}()
	SelectNextClone(SelectInputs{}, rand.New(rand.NewSource(1)))
}
