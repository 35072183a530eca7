package sim

import (
	"math"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/systems"
	"github.com/pthm-cable/clonal/telemetry"
)

// rateEventEpsilon suppresses rate-adjusted events for drifts smaller
// than the division lottery can resolve.
const rateEventEpsilon = 0.0005

// Balance pass threshold adjustment steps.
const (
	dominantThresholdStep = 0.02
	minorityThresholdStep = 0.01
)

// crowdingMinDividing gates the crowding pass; a sparse colony has no
// resource competition worth modeling.
const crowdingMinDividing = 10

// stressedSenescentRatio marks a clone as senescence-heavy once more
// than half its cells are senescent.
const stressedSenescentRatio = 0.5

// updateHomeostasis recomputes the global rates from the population
// ratio and runs the three staggered control passes. The passes are
// offset from each other so no single frame pays for all of them.
func (s *Simulation) updateHomeostasis() {
	ratio := float64(s.total) / float64(s.cfg.Population.Target)

	prevDiv := s.divisionProbability
	prevDeath := s.deathRate
	s.divisionProbability = systems.DivisionRate(ratio,
		s.cfg.Division.MinProbability,
		s.cfg.Division.BaseProbability,
		s.cfg.Division.MaxProbability)
	s.deathRate = systems.DeathRate(ratio,
		s.cfg.Homeostasis.MinDeathRate,
		s.cfg.Homeostasis.BaseDeathRate,
		s.cfg.Homeostasis.MaxDeathRate)
	if math.Abs(s.divisionProbability-prevDiv) > rateEventEpsilon ||
		math.Abs(s.deathRate-prevDeath) > rateEventEpsilon {
		s.events = append(s.events, telemetry.NewRatesAdjustedEvent(s.tick, s.divisionProbability, s.deathRate))
	}

	if s.boundaryPassDue() {
		s.applyBoundaryPressure()
	}
	if s.crowdingPassDue() && s.stateCounts[components.StateDividing] >= crowdingMinDividing {
		s.applyCrowdingPressure()
	}
	if s.balancePassDue() {
		s.applyCloneBalance()
	}
}

// Pass schedules. Boundary frames are multiples of its interval; the
// other two sit on quarter and half offsets, which at the default
// intervals are never such multiples, so the three mechanisms never
// share a frame.
func (s *Simulation) boundaryPassDue() bool {
	bi := int32(s.cfg.Homeostasis.BoundaryInterval)
	return s.tick%bi == 0
}

func (s *Simulation) crowdingPassDue() bool {
	ri := int32(s.cfg.Homeostasis.ResourceInterval)
	return s.tick%ri == ri/4
}

func (s *Simulation) balancePassDue() bool {
	gi := int32(s.cfg.Homeostasis.BalanceInterval)
	return s.tick%gi == gi/2
}

// applyBoundaryPressure forces senescence on cells crowding the disc
// boundary. Pressure rises linearly across the boundary band and with
// the cell's age fraction.
func (s *Simulation) applyBoundaryPressure() {
	band := s.cfg.Homeostasis.BoundaryBand * s.cfg.World.BoundaryRadius
	if band <= 0 {
		return
	}

	var forced []ecs.Entity
	query := s.cellFilter.Query()
	for query.Next() {
		pos, cell := query.Get()
		if cell.State == components.StateSenescent {
			continue
		}

		dist := s.space.BoundaryDistance(float64(pos.X), float64(pos.Y))
		if dist >= band {
			continue
		}
		proximity := 1 - dist/band
		ageFrac := float64(cell.Age) / float64(cell.MaxAge)
		p := systems.BoundarySenescenceProbability(s.deathRate, proximity, ageFrac)
		if s.rng.Float64() < p {
			forced = append(forced, query.Entity())
		}
	}

	s.forceSenescence(forced, telemetry.CauseBoundary)
}

// applyCrowdingPressure forces senescence on cells with too many
// neighbors, weighted toward same-clone crowding and global scarcity.
func (s *Simulation) applyCrowdingPressure() {
	radius := s.cfg.Homeostasis.CrowdingRadius
	limit := s.cfg.Homeostasis.CrowdingLimit
	scarcity := systems.Scarcity(s.total, s.cfg.Population.Target)

	var forced []ecs.Entity
	query := s.cellFilter.Query()
	for query.Next() {
		pos, cell := query.Get()
		if cell.State == components.StateSenescent {
			continue
		}

		s.neighbors = s.space.Neighbors(s.neighbors[:0],
			float64(pos.X), float64(pos.Y), radius, query.Entity(), s.posMap)
		n := len(s.neighbors)
		if n <= limit {
			continue
		}

		sameClone := 0
		for _, nb := range s.neighbors {
			if other := s.cellMap.Get(nb.E); other != nil && other.Clone == cell.Clone {
				sameClone++
			}
		}

		crowding := float64(n-limit) / float64(limit)
		sameCloneFrac := float64(sameClone) / float64(n)
		ageFrac := float64(cell.Age) / float64(cell.MaxAge)
		p := systems.CrowdingSenescenceProbability(s.deathRate, crowding, sameCloneFrac, ageFrac, scarcity)
		if s.rng.Float64() < p {
			forced = append(forced, query.Entity())
		}
	}

	s.forceSenescence(forced, telemetry.CauseCrowding)
}

// applyCloneBalance adjusts per-clone activation thresholds from three
// signals and applies selective pressure when one clone crowds out the
// others. The dominant clone is made harder to re-activate; shrinking
// or senescence-heavy clones are made easier; everyone else drifts back
// to the configured default.
func (s *Simulation) applyCloneBalance() {
	shares := systems.CloneShares(s.cloneCounts)
	dominant, hasDominant := systems.DominantClone(shares, s.cfg.Homeostasis.DominanceShare)

	for _, clone := range components.Clones() {
		switch {
		case hasDominant && clone == dominant:
			s.adjustThreshold(clone, -dominantThresholdStep)
		case hasDominant || s.cloneStressed(clone):
			s.adjustThreshold(clone, +minorityThresholdStep)
		default:
			def := s.cfg.Stem.ActivationThreshold
			cur := s.thresholds[clone]
			switch {
			case cur < def:
				s.adjustThreshold(clone, math.Min(minorityThresholdStep, def-cur))
			case cur > def:
				s.adjustThreshold(clone, -math.Min(minorityThresholdStep, cur-def))
			}
		}
	}

	for _, clone := range components.Clones() {
		if shares[clone] > s.cfg.Homeostasis.PressureShare {
			s.applySelectivePressure(clone)
		}
	}
}

// cloneStressed reports whether a clone is shrinking or senescence-heavy
// and should re-enter production sooner.
func (s *Simulation) cloneStressed(clone components.Clone) bool {
	if s.histories[clone].Declining(s.cfg.Telemetry.SlopeWindow) {
		return true
	}
	count := s.cloneCounts[clone]
	if count == 0 {
		return false
	}
	senescent := s.cloneStateCounts[clone][components.StateSenescent]
	return float64(senescent)/float64(count) > stressedSenescentRatio
}

// adjustThreshold shifts a clone's activation threshold within its
// configured bounds and emits an event when it actually moves.
func (s *Simulation) adjustThreshold(clone components.Clone, delta float64) {
	next := s.thresholds[clone] + delta
	if next < s.cfg.Stem.MinThreshold {
		next = s.cfg.Stem.MinThreshold
	}
	if next > s.cfg.Stem.MaxThreshold {
		next = s.cfg.Stem.MaxThreshold
	}
	if next == s.thresholds[clone] {
		return
	}
	s.thresholds[clone] = next
	s.events = append(s.events, telemetry.NewThresholdChangedEvent(s.tick, clone, next))
}

// applySelectivePressure targets the oldest dividing cells of an
// overrepresented clone with a per-cell senescence lottery.
func (s *Simulation) applySelectivePressure(clone components.Clone) {
	type aged struct {
		entity ecs.Entity
		age    int32
	}
	var dividing []aged

	query := s.cellFilter.Query()
	for query.Next() {
		_, cell := query.Get()
		if cell.Clone != clone || cell.State != components.StateDividing {
			continue
		}
		dividing = append(dividing, aged{entity: query.Entity(), age: cell.Age})
	}
	if len(dividing) == 0 {
		return
	}

	sort.Slice(dividing, func(i, j int) bool { return dividing[i].age > dividing[j].age })

	n := int(math.Ceil(s.cfg.Homeostasis.PressureFraction * float64(len(dividing))))
	var forced []ecs.Entity
	for _, c := range dividing[:n] {
		if s.rng.Float64() < s.cfg.Homeostasis.PressureProbability {
			forced = append(forced, c.entity)
		}
	}

	s.forceSenescence(forced, telemetry.CausePressure)
}

// forceSenescence drives the given cells senescent, crediting the
// mechanism in telemetry. Active stem cells are exempt: retiring the
// producing clone is the succession manager's call, not a side effect
// of spatial pressure.
func (s *Simulation) forceSenescence(entities []ecs.Entity, cause string) {
	for _, e := range entities {
		if stem := s.stemMap.Get(e); stem != nil && stem.Active {
			continue
		}
		cell := s.cellMap.Get(e)
		from, changed := systems.ForceSenescent(cell)
		if !changed {
			continue
		}
		cell.TransitionFlash = int32(s.cfg.Lifecycle.TransitionFlashFrames)
		s.events = append(s.events,
			telemetry.NewCellStateChangedEvent(s.tick, cell.ID, cell.Clone, from, components.StateSenescent),
			telemetry.NewSenescenceForcedEvent(s.tick, cell.ID, cell.Clone, cause))
		s.collector.RecordForcedSenescence(cause)
	}
}
