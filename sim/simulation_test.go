package sim

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func newTestSim(t *testing.T, cfg *config.Config, seed int64) *Simulation {
	t.Helper()
	s, err := New(cfg, Options{Seed: seed})
	if err != nil {
		t.Fatalf("creating simulation: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSeedsSingleStemCell(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 1)

	if s.Total() != 1 {
		t.Errorf("initial population = %d, want 1", s.Total())
	}
	if s.ActiveClone().String() != cfg.Population.InitialClone {
		t.Errorf("active clone = %s, want %s", s.ActiveClone(), cfg.Population.InitialClone)
	}

	s.Step()
	if s.activeStems != 1 {
		t.Errorf("active stems = %d, want 1", s.activeStems)
	}
}

func TestDeterministicReplay(t *testing.T) {
	cfg := testConfig(t)
	a := newTestSim(t, cfg, 7)
	b := newTestSim(t, cfg, 7)

	for tick := 0; tick < 2000; tick++ {
		a.Step()
		b.Step()
		a.DrainEvents()
		b.DrainEvents()

		if a.Total() != b.Total() {
			t.Fatalf("tick %d: totals diverge (%d vs %d)", tick, a.Total(), b.Total())
		}
		if a.CloneCounts() != b.CloneCounts() {
			t.Fatalf("tick %d: clone counts diverge (%v vs %v)", tick, a.CloneCounts(), b.CloneCounts())
		}
		if a.SuppressionLevel() != b.SuppressionLevel() {
			t.Fatalf("tick %d: suppression diverges (%v vs %v)", tick, a.SuppressionLevel(), b.SuppressionLevel())
		}
		if a.ActiveClone() != b.ActiveClone() {
			t.Fatalf("tick %d: active clones diverge", tick)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	cfg := testConfig(t)
	a := newTestSim(t, cfg, 1)
	b := newTestSim(t, cfg, 2)

	diverged := false
	for tick := 0; tick < 2000 && !diverged; tick++ {
		a.Step()
		b.Step()
		a.DrainEvents()
		b.DrainEvents()
		if a.Total() != b.Total() || a.CloneCounts() != b.CloneCounts() {
			diverged = true
		}
	}
	if !diverged {
		t.Error("different seeds should produce different runs")
	}
}

func TestCapacityIsAHardGate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.Capacity = 30
	cfg.Population.Target = 24
	s := newTestSim(t, cfg, 3)

	for tick := 0; tick < 5000; tick++ {
		s.Step()
		s.DrainEvents()
		if s.Total() > cfg.Population.Capacity {
			t.Fatalf("tick %d: population %d exceeds capacity %d", tick, s.Total(), cfg.Population.Capacity)
		}
	}
}

func TestSuppressionStaysInRange(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 5)

	for tick := 0; tick < 5000; tick++ {
		s.Step()
		s.DrainEvents()
		if l := s.SuppressionLevel(); l < 0 || l > 1 {
			t.Fatalf("tick %d: suppression level %v out of [0,1]", tick, l)
		}
	}
}

func TestSingleActiveCloneInvariant(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 11)

	for tick := 0; tick < 8000; tick++ {
		s.Step()
		s.DrainEvents()

		active := map[components.Clone]bool{}
		query := s.stemFilter.Query()
		for query.Next() {
			_, cell, stem := query.Get()
			if stem.Active {
				active[cell.Clone] = true
			}
		}
		if len(active) > 1 {
			t.Fatalf("tick %d: multiple clones have active stems: %v", tick, active)
		}
		for clone := range active {
			if clone != s.ActiveClone() {
				t.Fatalf("tick %d: active stem clone %v != manager clone %v", tick, clone, s.ActiveClone())
			}
		}
	}
}

func TestLongRunSucceedsAndSurvives(t *testing.T) {
	if testing.Short() {
		t.Skip("long run")
	}

	cfg := testConfig(t)
	s := newTestSim(t, cfg, 42)

	for tick := 0; tick < 30000; tick++ {
		s.Step()
		s.DrainEvents()
		if s.Total() == 0 {
			t.Fatalf("tick %d: population went extinct", tick)
		}
	}

	if s.Successions() < 1 {
		t.Error("a long run should cycle through at least one succession")
	}
}

func TestResetReplaysIdentically(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 9)

	const ticks = 1500
	for i := 0; i < ticks; i++ {
		s.Step()
		s.DrainEvents()
	}
	total := s.Total()
	counts := s.CloneCounts()
	suppression := s.SuppressionLevel()
	successions := s.Successions()

	s.Reset()
	if s.Total() != 1 || s.Tick() != 0 {
		t.Fatalf("reset state: total = %d tick = %d, want 1/0", s.Total(), s.Tick())
	}

	for i := 0; i < ticks; i++ {
		s.Step()
		s.DrainEvents()
	}

	if s.Total() != total || s.CloneCounts() != counts {
		t.Errorf("population after reset replay = %d/%v, want %d/%v", s.Total(), s.CloneCounts(), total, counts)
	}
	if s.SuppressionLevel() != suppression {
		t.Errorf("suppression after reset replay = %v, want %v", s.SuppressionLevel(), suppression)
	}
	if s.Successions() != successions {
		t.Errorf("successions after reset replay = %d, want %d", s.Successions(), successions)
	}
}

func TestSuccessionCreatesStemWhenCloneHasNone(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 13)

	// Only the founding clone has a stem; the first succession targets a
	// clone with none and must create exactly one.
	trigBefore := s.Successions()

	for tick := 0; tick < 20000 && s.Successions() == trigBefore; tick++ {
		s.Step()
		s.DrainEvents()
	}
	if s.Successions() == trigBefore {
		t.Fatal("no succession occurred")
	}

	stems := 0
	newClone := s.ActiveClone()
	query := s.stemFilter.Query()
	for query.Next() {
		_, cell, stem := query.Get()
		if cell.Clone == newClone && stem.Active {
			stems++
		}
	}
	if stems != 1 {
		t.Errorf("successor clone has %d active stems, want 1", stems)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 17)

	for i := 0; i < 1000; i++ {
		s.Step()
		s.DrainEvents()
	}

	snap := s.Snapshot()
	if len(snap.Cells) != s.Total() {
		t.Fatalf("snapshot cells = %d, want %d", len(snap.Cells), s.Total())
	}

	restored := newTestSim(t, cfg, 99)
	if err := restored.RestoreSnapshot(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.Total() != s.Total() {
		t.Errorf("restored total = %d, want %d", restored.Total(), s.Total())
	}
	if restored.Tick() != s.Tick() {
		t.Errorf("restored tick = %d, want %d", restored.Tick(), s.Tick())
	}
	if restored.ActiveClone() != s.ActiveClone() {
		t.Errorf("restored active clone = %v, want %v", restored.ActiveClone(), s.ActiveClone())
	}
	if restored.SuppressionLevel() != s.SuppressionLevel() {
		t.Errorf("restored suppression = %v, want %v", restored.SuppressionLevel(), s.SuppressionLevel())
	}
	if restored.CloneCounts() != s.CloneCounts() {
		t.Errorf("restored clone counts = %v, want %v", restored.CloneCounts(), s.CloneCounts())
	}
}

func TestRemoveEntityFreesTheEntity(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 23)

	var entities []ecs.Entity
	query := s.cellFilter.Query()
	for query.Next() {
		entities = append(entities, query.Entity())
	}
	if len(entities) != 1 {
		t.Fatalf("seeded population = %d entities, want 1", len(entities))
	}

	s.removeEntity(entities[0])
	if s.world.Alive(entities[0]) {
		t.Error("removed entity still alive in the world")
	}
	if s.Total() != 0 {
		t.Errorf("total after removal = %d, want 0", s.Total())
	}
}

func TestLinksExpireAndTrackLiveEndpoints(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 29)

	seen := false
	for tick := 0; tick < 3000; tick++ {
		s.Step()
		s.DrainEvents()

		for _, l := range s.Links() {
			seen = true
			if l.TTL <= 0 || l.TTL > int32(cfg.Lifecycle.LinkLifetimeFrames) {
				t.Fatalf("tick %d: link TTL = %d, want in (0, %d]", tick, l.TTL, cfg.Lifecycle.LinkLifetimeFrames)
			}
			if !s.world.Alive(l.Parent) || !s.world.Alive(l.Child) {
				t.Fatalf("tick %d: link kept with a dead endpoint", tick)
			}
		}
	}
	if !seen {
		t.Error("no division links observed over 3000 ticks")
	}
}

func TestEventsAreDrained(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 19)

	s.Step()
	first := s.DrainEvents()
	if len(first) == 0 {
		t.Error("the first step should emit at least the seed events")
	}

	second := s.DrainEvents()
	if len(second) != 0 {
		t.Errorf("drained twice, second drain = %d events, want 0", len(second))
	}
}
