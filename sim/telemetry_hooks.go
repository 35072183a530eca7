package sim

import (
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/telemetry"
)

// flushTelemetry closes the stats window when due.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	census := telemetry.Census{
		CloneCounts: s.cloneCounts,
		Dividing:    s.stateCounts[components.StateDividing],
		NonDividing: s.stateCounts[components.StateNonDividing],
		Senescent:   s.stateCounts[components.StateSenescent],

		StemCounts:   s.stemCounts,
		DormantStems: s.dormantStems,
		ActiveStems:  s.activeStems,

		ActiveClone:      s.activeClone,
		SuppressionLevel: s.suppressionLevel,
		DivisionRate:     s.divisionProbability,
		MeanGeneration:   s.meanGeneration,
		MeanAgeFraction:  s.meanAgeFraction,
	}

	stats := s.collector.Flush(s.tick, census)
	if s.logStats {
		stats.LogStats()
	}
	for _, b := range s.bookmarks.Check(stats) {
		b.LogBookmark()
	}
	if err := s.output.WriteTelemetry(stats); err != nil {
		s.logError("writing telemetry", err)
	}
}

// Snapshot captures the complete simulation state.
func (s *Simulation) Snapshot() *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:        telemetry.SnapshotVersion,
		RNGSeed:        s.seed,
		BoundaryRadius: s.cfg.World.BoundaryRadius,
		Tick:           s.tick,
		Manager: telemetry.ManagerState{
			ActiveClone:          s.activeClone,
			SuppressionLevel:     s.suppressionLevel,
			Thresholds:           s.thresholds,
			LastActivated:        s.lastActivated,
			DyingSignals:         s.dyingSignals,
			SuccessionCooldown:   s.successionCooldown,
			LowSuppressionFrames: s.lowSuppressionFrames,
			DeclineFrames:        s.declineFrames,
			Successions:          s.successions,
			NextCellID:           s.nextID,
			Generation:           s.generation,
			DivisionProbability:  s.divisionProbability,
			DeathRate:            s.deathRate,
		},
	}

	query := s.cellFilter.Query()
	for query.Next() {
		pos, cell := query.Get()
		state := telemetry.CellState{
			ID:               cell.ID,
			Clone:            cell.Clone,
			Generation:       cell.Generation,
			X:                pos.X,
			Y:                pos.Y,
			Age:              cell.Age,
			MaxAge:           cell.MaxAge,
			State:            int(cell.State),
			DivisionsLeft:    cell.DivisionsLeft,
			DivisionCount:    cell.DivisionCount,
			DivisionCooldown: cell.DivisionCooldown,
			CanDivide:        cell.CanDivide,
		}
		if stem := s.stemMap.Get(query.Entity()); stem != nil {
			state.Stem = &telemetry.StemState{
				State:              stem.State,
				Active:             stem.Active,
				SuppressionLevel:   stem.SuppressionLevel,
				ActivationProgress: stem.ActivationProgress,
				MaxDivisions:       stem.MaxDivisions,
			}
		}
		snap.Cells = append(snap.Cells, state)
	}

	return snap
}

// SaveSnapshot writes the current state to the snapshot directory.
func (s *Simulation) SaveSnapshot() (string, error) {
	if s.snapshotDir == "" {
		return "", fmt.Errorf("sim: no snapshot directory configured")
	}
	return telemetry.SaveSnapshot(s.Snapshot(), s.snapshotDir)
}

// RestoreSnapshot replaces the world with the snapshot's state. The RNG
// restarts from the recorded seed, so the continuation is deterministic
// but not a bit-exact resume of the original stream.
func (s *Simulation) RestoreSnapshot(snap *telemetry.Snapshot) error {
	if snap.Version != telemetry.SnapshotVersion {
		return fmt.Errorf("sim: snapshot version %d, want %d", snap.Version, telemetry.SnapshotVersion)
	}

	var toRemove []ecs.Entity
	query := s.cellFilter.Query()
	for query.Next() {
		toRemove = append(toRemove, query.Entity())
	}
	for _, e := range toRemove {
		s.removeEntity(e)
	}

	s.seed = snap.RNGSeed
	s.rng = rand.New(rand.NewSource(snap.RNGSeed))
	s.tick = snap.Tick
	s.links = s.links[:0]
	s.events = s.events[:0]
	for i := range s.histories {
		s.histories[i].Reset()
	}

	m := snap.Manager
	s.activeClone = m.ActiveClone
	s.suppressionLevel = m.SuppressionLevel
	s.thresholds = m.Thresholds
	s.lastActivated = m.LastActivated
	s.dyingSignals = m.DyingSignals
	s.successionCooldown = m.SuccessionCooldown
	s.lowSuppressionFrames = m.LowSuppressionFrames
	s.declineFrames = m.DeclineFrames
	s.successions = m.Successions
	s.nextID = m.NextCellID
	s.generation = m.Generation
	s.divisionProbability = m.DivisionProbability
	s.deathRate = m.DeathRate

	s.total = 0
	for _, cs := range snap.Cells {
		pos := components.Position{X: cs.X, Y: cs.Y}
		cell := components.Cell{
			ID:               cs.ID,
			Clone:            cs.Clone,
			Generation:       cs.Generation,
			Age:              cs.Age,
			MaxAge:           cs.MaxAge,
			State:            components.LifecycleState(cs.State),
			DivisionsLeft:    cs.DivisionsLeft,
			DivisionCount:    cs.DivisionCount,
			DivisionCooldown: cs.DivisionCooldown,
			CanDivide:        cs.CanDivide,
		}
		if cs.Stem != nil {
			stem := components.Stem{
				State:              cs.Stem.State,
				Active:             cs.Stem.Active,
				SuppressionLevel:   cs.Stem.SuppressionLevel,
				ActivationProgress: cs.Stem.ActivationProgress,
				MaxDivisions:       cs.Stem.MaxDivisions,
			}
			s.stemMapper.NewEntity(&pos, &cell, &stem)
		} else {
			s.cellMapper.NewEntity(&pos, &cell)
		}
		s.total++
	}

	s.refreshAggregates()

	return nil
}
