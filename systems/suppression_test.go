package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/clonal/components"
)

func TestUpdateSuppression(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		in    SuppressionInputs
		want  float64
	}{
		{
			"near capacity raises the level",
			0.5,
			SuppressionInputs{Total: 95, Capacity: 100, ActiveCount: 50, ActivationThreshold: 0.3},
			0.52,
		},
		{
			"capacity rule wins over decline",
			0.5,
			SuppressionInputs{Total: 95, Capacity: 100, ActiveCount: 10, ActiveDeclining: true, ActivationThreshold: 0.3},
			0.52,
		},
		{
			"declining small clone drops rapidly",
			0.5,
			SuppressionInputs{Total: 40, Capacity: 100, ActiveCount: 20, ActiveDeclining: true, ActivationThreshold: 0.3},
			0.45,
		},
		{
			"declining large clone drops moderately",
			0.5,
			SuppressionInputs{Total: 60, Capacity: 100, ActiveCount: 40, ActiveDeclining: true, ActivationThreshold: 0.3},
			0.48,
		},
		{
			"stable population relaxes toward the threshold",
			0.5,
			SuppressionInputs{Total: 60, Capacity: 100, ActiveCount: 40, ActivationThreshold: 0.3},
			0.498,
		},
		{
			"relaxation rises from below the threshold",
			0.1,
			SuppressionInputs{Total: 60, Capacity: 100, ActiveCount: 40, ActivationThreshold: 0.3},
			0.102,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpdateSuppression(tt.level, tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("UpdateSuppression = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateSuppressionClamps(t *testing.T) {
	got := UpdateSuppression(0.03, SuppressionInputs{
		Total: 40, Capacity: 100, ActiveCount: 10, ActiveDeclining: true, ActivationThreshold: 0.3,
	})
	if got != 0 {
		t.Errorf("level = %v, want clamped to 0", got)
	}

	got = UpdateSuppression(0.99, SuppressionInputs{
		Total: 100, Capacity: 100, ActivationThreshold: 0.3,
	})
	if got != 1 {
		t.Errorf("level = %v, want clamped to 1", got)
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.5) != 0 || Clamp01(1.5) != 1 || Clamp01(0.5) != 0.5 {
		t.Error("Clamp01 bounds wrong")
	}
}

func TestStemSuppressEMA(t *testing.T) {
	stem := &components.Stem{SuppressionLevel: 0}

	stem.Suppress(1)
	if math.Abs(stem.SuppressionLevel-0.1) > 1e-9 {
		t.Errorf("level = %v, want 0.1 after one full-strength signal", stem.SuppressionLevel)
	}

	// Converges toward the signal without overshooting.
	for i := 0; i < 200; i++ {
		stem.Suppress(1)
	}
	if stem.SuppressionLevel > 1 || stem.SuppressionLevel < 0.99 {
		t.Errorf("level = %v, want near 1", stem.SuppressionLevel)
	}

	// A single spike barely moves a settled level.
	stem.SuppressionLevel = 0
	stem.Suppress(1)
	stem.Suppress(0)
	if stem.SuppressionLevel > 0.1 {
		t.Errorf("level = %v, smoothing should absorb single-frame spikes", stem.SuppressionLevel)
	}
}

func TestProductionStrength(t *testing.T) {
	cell := &components.Cell{State: components.StateDividing, DivisionsLeft: 10}
	stem := &components.Stem{Active: true, State: components.StemActive, MaxDivisions: 10}

	if got := stem.ProductionStrength(cell); got != 1 {
		t.Errorf("full budget dividing = %v, want 1", got)
	}

	cell.State = components.StateNonDividing
	if got := stem.ProductionStrength(cell); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("non-dividing = %v, want 0.7", got)
	}

	cell.State = components.StateSenescent
	if got := stem.ProductionStrength(cell); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("senescent = %v, want 0.3", got)
	}

	cell.State = components.StateDividing
	cell.DivisionsLeft = 5
	if got := stem.ProductionStrength(cell); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("half budget = %v, want 0.5", got)
	}

	stem.Active = false
	if got := stem.ProductionStrength(cell); got != 0 {
		t.Errorf("inactive stem = %v, want 0", got)
	}
}
