package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/systems"
	"github.com/pthm-cable/clonal/telemetry"
)

// suppressionEventEpsilon is the smallest global level change worth an
// event; smaller drifts happen every tick and carry no information.
const suppressionEventEpsilon = 0.01

// updateSuppressionSignal advances the global suppression scalar and
// folds the active clone's production into every dormant stem. The
// pushed signal scales with mean production, so a depleting active
// clone desuppresses the dormant pool on its own.
func (s *Simulation) updateSuppressionSignal() {
	var production float64
	producers := 0
	query := s.stemFilter.Query()
	for query.Next() {
		_, cell, stem := query.Get()
		if stem.Active {
			production += stem.ProductionStrength(cell)
			producers++
		}
	}
	meanProduction := 0.0
	if producers > 0 {
		meanProduction = production / float64(producers)
	}

	declining := s.histories[s.activeClone].Declining(s.cfg.Telemetry.SlopeWindow)

	prev := s.suppressionLevel
	s.suppressionLevel = systems.UpdateSuppression(s.suppressionLevel, systems.SuppressionInputs{
		Total:               s.total,
		Capacity:            s.cfg.Population.Capacity,
		ActiveCount:         s.cloneCounts[s.activeClone],
		ActiveDeclining:     declining,
		ActivationThreshold: s.cfg.Stem.ActivationThreshold,
	})
	if diff := s.suppressionLevel - prev; diff > suppressionEventEpsilon || diff < -suppressionEventEpsilon {
		s.events = append(s.events, telemetry.NewSuppressionChangedEvent(s.tick, s.suppressionLevel))
	}

	signal := s.suppressionLevel * meanProduction * s.cfg.Stem.SuppressionStrength
	dormantQuery := s.stemFilter.Query()
	for dormantQuery.Next() {
		_, cell, stem := dormantQuery.Get()
		if stem.Active || stem.State == components.StemDepleted {
			continue
		}
		stem.Suppress(signal)
		systems.UpdateDormantStem(stem, s.thresholds[cell.Clone])
	}

	if s.suppressionLevel < s.cfg.Stem.ActivationThreshold {
		s.lowSuppressionFrames++
	} else {
		s.lowSuppressionFrames = 0
	}

	if declining && float64(s.cloneCounts[s.activeClone]) < s.cfg.Succession.DeclineRatio*float64(s.cfg.Population.Capacity) {
		s.declineFrames++
	} else {
		s.declineFrames = 0
	}
}

// recordDyingCellSignal counts one senescent death toward the dying
// signal trigger. The counter resets on succession.
func (s *Simulation) recordDyingCellSignal() {
	s.dyingSignals++
}

// checkActivationConditions evaluates the succession triggers once the
// cooldown has elapsed, and executes the first satisfied one.
func (s *Simulation) checkActivationConditions() {
	if s.successionCooldown > 0 {
		s.successionCooldown--
		return
	}

	activeCount := s.cloneCounts[s.activeClone]
	senescentRatio := 0.0
	if activeCount > 0 {
		senescentRatio = float64(s.cloneStateCounts[s.activeClone][components.StateSenescent]) / float64(activeCount)
	}

	trig, ok := systems.EvaluateTriggers(systems.TriggerInputs{
		Total:    s.total,
		Capacity: s.cfg.Population.Capacity,

		Suppression: s.suppressionLevel,
		Threshold:   s.cfg.Stem.ActivationThreshold,

		ActiveStemsExhausted: s.activeStemsExhausted(),

		DyingSignals:         s.dyingSignals,
		DyingSignalThreshold: s.cfg.Succession.DyingSignalThreshold,

		ActiveSenescentRatio: senescentRatio,
		ActiveDeclining:      s.histories[s.activeClone].Declining(s.cfg.Telemetry.SlopeWindow),
		ActiveCount:          activeCount,

		CrashRatio:   s.cfg.Succession.CrashRatio,
		DeclineRatio: s.cfg.Succession.DeclineRatio,

		DeclineSustainedFrames: s.declineFrames,
		DeclineSustainFrames:   s.cfg.Succession.DeclineSustainFrames,

		LowSuppressionFrames: s.lowSuppressionFrames,
		NaturalSustainFrames: s.cfg.Succession.NaturalSustainFrames,

		BestDormantProgress: s.bestDormantProgress(),
	})
	if !ok {
		return
	}

	s.executeSuccession(trig)
}

// activeStemsExhausted reports whether the producing clone has no
// production left: every active stem is depleted, or none remain.
func (s *Simulation) activeStemsExhausted() bool {
	query := s.stemFilter.Query()
	for query.Next() {
		_, _, stem := query.Get()
		if stem.Active && stem.State != components.StemDepleted {
			query.Close()
			return false
		}
	}
	return true
}

// bestDormantProgress returns the highest activation progress among
// dormant stems outside the active clone.
func (s *Simulation) bestDormantProgress() float64 {
	best := 0.0
	query := s.stemFilter.Query()
	for query.Next() {
		_, cell, stem := query.Get()
		if stem.Active || stem.State == components.StemDepleted || cell.Clone == s.activeClone {
			continue
		}
		if stem.ActivationProgress > best {
			best = stem.ActivationProgress
		}
	}
	return best
}

// executeSuccession retires the current clone's active stems, selects a
// successor, and activates its most ready stem. A clone with no stem
// cells left gets a fresh one seeded near the center; a succession
// never fails for lack of a candidate.
func (s *Simulation) executeSuccession(trig systems.Trigger) {
	old := s.activeClone

	candidates := s.buildCandidates(old)
	newClone, strategy := systems.SelectNextClone(systems.SelectInputs{
		Total:           s.total,
		Capacity:        s.cfg.Population.Capacity,
		SuccessionCount: s.successions,
		Tick:            s.tick,
		Candidates:      candidates,
	}, s.rng)

	// Retire the outgoing clone's producers.
	var retiring []ecs.Entity
	query := s.stemFilter.Query()
	for query.Next() {
		_, _, stem := query.Get()
		if stem.Active {
			retiring = append(retiring, query.Entity())
		}
	}
	for _, e := range retiring {
		cell := s.cellMap.Get(e)
		stem := s.stemMap.Get(e)
		systems.DeactivateStem(cell, stem)
		s.events = append(s.events, telemetry.NewStemDeactivatedEvent(s.tick, cell.ID, cell.Clone))
		s.collector.RecordDeactivation()
	}

	s.generation++

	target := s.readiestStem(newClone)
	if target == (ecs.Entity{}) {
		target = s.createStemCell(newClone, s.placer.NearCenter(s.rng))
	}
	cell := s.cellMap.Get(target)
	stem := s.stemMap.Get(target)
	cell.Generation = s.generation
	systems.ActivateStem(cell, stem, s.cfg.Stem.MaxDivisions)
	s.events = append(s.events, telemetry.NewStemActivatedEvent(s.tick, cell.ID, newClone))
	s.collector.RecordActivation()

	s.activeClone = newClone
	s.lastActivated[newClone] = s.tick
	s.successions++
	s.dyingSignals = 0
	s.declineFrames = 0
	s.lowSuppressionFrames = 0
	s.successionCooldown = systems.SuccessionCooldown(trig.Urgency)

	s.events = append(s.events, telemetry.NewSuccessionEvent(s.tick, old, newClone, trig.Reason, trig.Urgency))
	s.collector.RecordSuccession()

	rec := telemetry.SuccessionRecord{
		Tick:             s.tick,
		OldClone:         old.String(),
		NewClone:         newClone.String(),
		Reason:           trig.Reason,
		Urgency:          trig.Urgency,
		Strategy:         strategy,
		Total:            s.total,
		OldCloneCount:    s.cloneCounts[old],
		NewCloneCount:    s.cloneCounts[newClone],
		SuppressionLevel: s.suppressionLevel,
	}
	if err := s.output.WriteSuccession(rec); err != nil {
		s.logError("writing succession record", err)
	}
	s.logSuccession(rec)
}

// buildCandidates summarizes every clone except the retiring one.
func (s *Simulation) buildCandidates(exclude components.Clone) []systems.CloneCandidate {
	var stemCount [components.NumClones]int
	var budgetSum [components.NumClones]float64

	query := s.stemFilter.Query()
	for query.Next() {
		_, cell, stem := query.Get()
		if stem.Active || stem.State == components.StemDepleted {
			continue
		}
		stemCount[cell.Clone]++
		if stem.MaxDivisions > 0 {
			budgetSum[cell.Clone] += float64(cell.DivisionsLeft) / float64(stem.MaxDivisions)
		}
	}

	candidates := make([]systems.CloneCandidate, 0, components.NumClones-1)
	for _, clone := range components.Clones() {
		if clone == exclude {
			continue
		}
		// A clone with no stems gets a fresh full-budget stem on
		// activation, so it counts as fully healthy.
		avg := 1.0
		if stemCount[clone] > 0 {
			avg = budgetSum[clone] / float64(stemCount[clone])
		}
		candidates = append(candidates, systems.CloneCandidate{
			Clone:             clone,
			StemCount:         stemCount[clone],
			AvgBudgetFraction: avg,
			LastActivated:     s.lastActivated[clone],
		})
	}
	return candidates
}

// readiestStem returns the clone's dormant stem with the highest
// activation progress, or the zero entity if the clone has none.
func (s *Simulation) readiestStem(clone components.Clone) ecs.Entity {
	var best ecs.Entity
	bestProgress := -1.0
	query := s.stemFilter.Query()
	for query.Next() {
		_, cell, stem := query.Get()
		if cell.Clone != clone || stem.Active {
			continue
		}
		// Depleted stems rank behind any dormant one; activation would
		// restore their budget but a rested stem is preferred.
		progress := stem.ActivationProgress
		if stem.State == components.StemDepleted {
			progress = -0.5
		}
		if progress > bestProgress {
			bestProgress = progress
			best = query.Entity()
		}
	}
	return best
}
