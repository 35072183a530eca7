package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/systems"
	"github.com/pthm-cable/clonal/telemetry"
)

// updateCells ages every cell, applies lifecycle transitions, and
// removes cells past their lifespan. Dormant stem cells are quiescent
// and do not age; they hold their readiness until selected. Depleted
// stems age out like plain cells.
func (s *Simulation) updateCells() {
	params := systems.LifecycleParams{
		DivisionThreshold:   s.cfg.Lifecycle.DivisionThreshold,
		SenescenceThreshold: s.cfg.Lifecycle.SenescenceThreshold,
		SenescentAging:      int32(s.cfg.Lifecycle.SenescentAging),
	}

	type deadInfo struct {
		entity ecs.Entity
		id     uint32
		clone  components.Clone
		state  components.LifecycleState
		age    int32
	}
	var toRemove []deadInfo

	query := s.cellFilter.Query()
	for query.Next() {
		entity := query.Entity()
		_, cell := query.Get()

		if cell.DivisionCooldown > 0 {
			cell.DivisionCooldown--
		}
		if cell.TransitionFlash > 0 {
			cell.TransitionFlash--
		}

		if stem := s.stemMap.Get(entity); stem != nil && !stem.Active && stem.State != components.StemDepleted {
			continue
		}

		from, to, changed := systems.AgeCell(cell, params)
		if changed {
			cell.TransitionFlash = int32(s.cfg.Lifecycle.TransitionFlashFrames)
			s.events = append(s.events, telemetry.NewCellStateChangedEvent(s.tick, cell.ID, cell.Clone, from, to))
		}

		if !cell.Alive() {
			toRemove = append(toRemove, deadInfo{entity: entity, id: cell.ID, clone: cell.Clone, state: cell.State, age: cell.Age})
		}
	}

	// Second pass: remove entities (query iteration complete)
	for _, dead := range toRemove {
		senescent := dead.state == components.StateSenescent
		if senescent {
			s.recordDyingCellSignal()
		}
		s.events = append(s.events, telemetry.NewCellDiedEvent(s.tick, dead.id, dead.clone, dead.state))
		s.collector.RecordDeath(dead.clone, senescent)
		s.collector.RecordLifespan(dead.age)
		s.removeEntity(dead.entity)
	}

	s.updateLinks()
}

// updateLinks counts down parent/child markers and drops expired ones
// or ones whose endpoints died.
func (s *Simulation) updateLinks() {
	kept := s.links[:0]
	for _, l := range s.links {
		l.TTL--
		if l.TTL <= 0 || !s.world.Alive(l.Parent) || !s.world.Alive(l.Child) {
			continue
		}
		kept = append(kept, l)
	}
	s.links = kept
}

// processDivisions runs the division lottery over ready cells. The
// population capacity is a hard gate checked per birth, so a tick never
// overshoots it. Non-active stem cells are quiescent and never enter
// the lottery.
func (s *Simulation) processDivisions() {
	params := systems.DivisionParams{
		CooldownFrames: int32(s.cfg.Division.CooldownFrames),
		MaxAgeBase:     s.cfg.Lifecycle.MaxAgeBase,
		MaxAgeJitter:   s.cfg.Lifecycle.MaxAgeJitter,
	}

	var candidates []ecs.Entity
	query := s.cellFilter.Query()
	for query.Next() {
		entity := query.Entity()
		_, cell := query.Get()

		if !cell.DivisionReady() {
			continue
		}
		if stem := s.stemMap.Get(entity); stem != nil && !stem.Active {
			continue
		}
		if s.rng.Float64() < s.divisionProbability {
			candidates = append(candidates, entity)
		}
	}

	for _, entity := range candidates {
		if s.total >= s.cfg.Population.Capacity {
			break
		}

		parent := s.cellMap.Get(entity)
		child, ok := systems.Divide(parent, s.nextID, params, s.rng)
		if !ok {
			continue
		}
		s.nextID++

		if stem := s.stemMap.Get(entity); stem != nil {
			systems.RecordDivision(parent, stem)
		}

		pos := s.placer.NearParent(*s.posMap.Get(entity), s.rng)
		childEntity := s.cellMapper.NewEntity(&pos, &child)
		s.total++

		s.links = append(s.links, Link{
			Parent: entity,
			Child:  childEntity,
			TTL:    int32(s.cfg.Lifecycle.LinkLifetimeFrames),
		})

		s.events = append(s.events, telemetry.NewCellDividedEvent(s.tick, child.ID, parent.ID, child.Clone))
		s.collector.RecordBirth(child.Clone)
	}
}

// refreshAggregates takes the per-tick census every later stage reads.
func (s *Simulation) refreshAggregates() {
	s.cloneCounts = [components.NumClones]int{}
	s.cloneStateCounts = [components.NumClones][3]int{}
	s.stateCounts = [3]int{}
	s.stemCounts = [components.NumClones]int{}
	s.dormantStems = 0
	s.activeStems = 0

	var sumGeneration, sumAgeFraction float64
	count := 0

	query := s.cellFilter.Query()
	for query.Next() {
		_, cell := query.Get()
		s.cloneCounts[cell.Clone]++
		s.stateCounts[cell.State]++
		s.cloneStateCounts[cell.Clone][cell.State]++
		sumGeneration += float64(cell.Generation)
		if cell.MaxAge > 0 {
			sumAgeFraction += float64(cell.Age) / float64(cell.MaxAge)
		}
		count++
	}

	stemQuery := s.stemFilter.Query()
	for stemQuery.Next() {
		_, cell, stem := stemQuery.Get()
		s.stemCounts[cell.Clone]++
		if stem.Active {
			s.activeStems++
		} else if stem.State != components.StemDepleted {
			s.dormantStems++
		}
	}

	s.total = count
	if count > 0 {
		s.meanGeneration = sumGeneration / float64(count)
		s.meanAgeFraction = sumAgeFraction / float64(count)
	} else {
		s.meanGeneration = 0
		s.meanAgeFraction = 0
	}

	for i := range s.histories {
		s.histories[i].Push(float64(s.cloneCounts[i]))
	}
}
