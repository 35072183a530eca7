package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/clonal/components"
)

func testParams() LifecycleParams {
	return LifecycleParams{
		DivisionThreshold:   0.4,
		SenescenceThreshold: 0.7,
		SenescentAging:      4,
	}
}

func TestAgeCellTransitions(t *testing.T) {
	tests := []struct {
		name        string
		cell        components.Cell
		wantState   components.LifecycleState
		wantChanged bool
	}{
		{
			"young dividing cell stays dividing",
			components.Cell{Age: 10, MaxAge: 100, State: components.StateDividing, DivisionsLeft: 5, CanDivide: true},
			components.StateDividing,
			false,
		},
		{
			"dividing cell crossing age threshold",
			components.Cell{Age: 40, MaxAge: 100, State: components.StateDividing, DivisionsLeft: 5, CanDivide: true},
			components.StateNonDividing,
			true,
		},
		{
			"dividing cell hitting lifetime division cap",
			components.Cell{Age: 0, MaxAge: 100, State: components.StateDividing, DivisionsLeft: 5, DivisionCount: 5, CanDivide: true},
			components.StateNonDividing,
			true,
		},
		{
			"non-dividing cell crossing senescence threshold",
			components.Cell{Age: 70, MaxAge: 100, State: components.StateNonDividing},
			components.StateSenescent,
			true,
		},
		{
			"non-dividing cell below senescence threshold",
			components.Cell{Age: 50, MaxAge: 100, State: components.StateNonDividing},
			components.StateNonDividing,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell := tt.cell
			_, to, changed := AgeCell(&cell, testParams())
			if cell.State != tt.wantState {
				t.Errorf("state = %v, want %v", cell.State, tt.wantState)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if changed && to != tt.wantState {
				t.Errorf("to = %v, want %v", to, tt.wantState)
			}
		})
	}
}

func TestAgeCellSingleTransitionPerFrame(t *testing.T) {
	// A cell far past both thresholds still takes only one step forward.
	cell := components.Cell{Age: 95, MaxAge: 100, State: components.StateDividing, DivisionsLeft: 5, CanDivide: true}
	_, _, changed := AgeCell(&cell, testParams())
	if !changed {
		t.Fatal("expected a transition")
	}
	if cell.State != components.StateNonDividing {
		t.Errorf("state = %v, want non_dividing after one frame", cell.State)
	}
}

func TestAgeCellSenescentAcceleration(t *testing.T) {
	cell := components.Cell{Age: 80, MaxAge: 100, State: components.StateSenescent}
	AgeCell(&cell, testParams())
	if cell.Age != 84 {
		t.Errorf("age = %d, want 84 (4x aging)", cell.Age)
	}

	// Accelerated aging carries the cell past MaxAge.
	for i := 0; i < 5; i++ {
		AgeCell(&cell, testParams())
	}
	if cell.Alive() {
		t.Error("senescent cell past MaxAge should not be alive")
	}
}

func TestAgeCellClearsCanDivideOnTransition(t *testing.T) {
	cell := components.Cell{Age: 40, MaxAge: 100, State: components.StateDividing, DivisionsLeft: 5, CanDivide: true}
	AgeCell(&cell, testParams())
	if cell.CanDivide {
		t.Error("CanDivide should clear when leaving the dividing state")
	}
}

func TestForceSenescent(t *testing.T) {
	cell := components.Cell{Age: 10, MaxAge: 100, State: components.StateDividing, CanDivide: true}
	from, changed := ForceSenescent(&cell)
	if !changed || from != components.StateDividing {
		t.Errorf("from = %v changed = %v, want dividing/true", from, changed)
	}
	if cell.State != components.StateSenescent || cell.CanDivide {
		t.Error("forced cell should be senescent and unable to divide")
	}

	// Idempotent on already senescent cells.
	_, changed = ForceSenescent(&cell)
	if changed {
		t.Error("forcing an already senescent cell should report no change")
	}
}

func TestDivideContract(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	params := DivisionParams{CooldownFrames: 30, MaxAgeBase: 100, MaxAgeJitter: 0.2}

	parent := components.Cell{
		ID: 1, Clone: components.CloneGreen, Generation: 3,
		Age: 5, MaxAge: 100, State: components.StateDividing,
		DivisionsLeft: 3, CanDivide: true,
	}

	child, ok := Divide(&parent, 42, params, rng)
	if !ok {
		t.Fatal("division should succeed")
	}
	if parent.DivisionCount != 1 {
		t.Errorf("parent count = %d, want 1", parent.DivisionCount)
	}
	if parent.DivisionCooldown != 30 {
		t.Errorf("parent cooldown = %d, want 30", parent.DivisionCooldown)
	}
	if child.ID != 42 || child.Clone != components.CloneGreen || child.Generation != 3 {
		t.Errorf("child identity wrong: %+v", child)
	}
	if child.DivisionsLeft != 2 || !child.CanDivide {
		t.Errorf("child budget = %d canDivide = %v, want 2/true", child.DivisionsLeft, child.CanDivide)
	}
	if child.Age != 0 || child.State != components.StateDividing {
		t.Errorf("child should start fresh and dividing: %+v", child)
	}
}

func TestDivideLastBudgetChild(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	parent := components.Cell{
		State: components.StateDividing, MaxAge: 100,
		DivisionsLeft: 1, CanDivide: true,
	}
	child, ok := Divide(&parent, 2, DivisionParams{MaxAgeBase: 100}, rng)
	if !ok {
		t.Fatal("division should succeed")
	}
	if child.DivisionsLeft != 0 || child.CanDivide {
		t.Error("child of a last-budget parent should be unable to divide")
	}
}

func TestDivideGuards(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	params := DivisionParams{MaxAgeBase: 100}

	tests := []struct {
		name   string
		parent components.Cell
	}{
		{"non-dividing state", components.Cell{State: components.StateNonDividing, DivisionsLeft: 3, CanDivide: true}},
		{"on cooldown", components.Cell{State: components.StateDividing, DivisionsLeft: 3, CanDivide: true, DivisionCooldown: 5}},
		{"cannot divide", components.Cell{State: components.StateDividing, DivisionsLeft: 3}},
		{"count at budget", components.Cell{State: components.StateDividing, DivisionsLeft: 3, DivisionCount: 3, CanDivide: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := tt.parent
			if _, ok := Divide(&parent, 1, params, rng); ok {
				t.Error("division should fail")
			}
			if parent.DivisionCount != tt.parent.DivisionCount {
				t.Error("failed division must not mutate the parent")
			}
		})
	}
}

func TestJitteredMaxAge(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		age := JitteredMaxAge(100, 0.2, rng)
		if age < 80 || age > 120 {
			t.Fatalf("age = %d, want within [80, 120]", age)
		}
	}

	if age := JitteredMaxAge(100, 0, rng); age != 100 {
		t.Errorf("zero jitter age = %d, want 100", age)
	}
}
