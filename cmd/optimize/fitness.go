package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/config"
	"github.com/pthm-cable/clonal/sim"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// sampleInterval is how often a run samples clone balance, in ticks.
const sampleInterval = 300

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int32 // ticks before extinction (or maxTicks if survived)
	successions   int
	meanBalance   float64 // mean clone-share entropy, normalized to [0,1]
	meanTargetHit float64 // mean closeness of population to target, [0,1]
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness rewards survival time, scaled up by run quality: succession
// turnover, clone balance, and population tracking of the target.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			quality := fe.computeQuality(result)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result, quality),
				quality: quality,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless simulation run until
// extinction or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}

	s, err := sim.New(cfg, sim.Options{Seed: seed})
	if err != nil {
		// No output dirs are configured, so this cannot happen; score it
		// as an immediate extinction if it somehow does.
		return result
	}
	defer s.Close()

	var balanceSum, targetSum float64
	samples := 0

	for tick := int32(0); tick < fe.maxTicks; tick++ {
		s.Step()
		s.DrainEvents()

		if s.Total() == 0 {
			result.survivalTicks = tick
			break
		}
		result.survivalTicks = tick + 1

		if tick%sampleInterval == 0 {
			balanceSum += cloneEntropy(s.CloneCounts())
			targetSum += targetCloseness(s.Total(), cfg.Population.Target)
			samples++
		}
	}

	result.successions = s.Successions()
	if samples > 0 {
		result.meanBalance = balanceSum / float64(samples)
		result.meanTargetHit = targetSum / float64(samples)
	}

	return result
}

// computeQuality scores a run in [0, ~3]: one point each for healthy
// succession turnover, clone balance, and population tracking.
func (fe *FitnessEvaluator) computeQuality(r *runResult) float64 {
	if r.survivalTicks == 0 {
		return 0
	}

	// One succession per 3000 ticks is a healthy cycle; cap at 1.
	successionRate := float64(r.successions) * 3000.0 / float64(r.survivalTicks)
	if successionRate > 1 {
		successionRate = 1
	}

	return successionRate + r.meanBalance + r.meanTargetHit
}

// computeFitness converts a run into a minimization objective.
func (fe *FitnessEvaluator) computeFitness(r *runResult, quality float64) float64 {
	return -float64(r.survivalTicks) * (1.0 + 0.2*quality)
}

// copyConfig returns a private copy of the base config. Config holds no
// reference types, so a value copy is a deep copy.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	c := *fe.baseConfig
	return &c
}

// cloneEntropy returns the Shannon entropy of the clone shares,
// normalized so an even three-way split scores 1.
func cloneEntropy(counts [components.NumClones]int) float64 {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0
	}

	h := 0.0
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		h -= p * math.Log(p)
	}
	return h / math.Log(components.NumClones)
}

// targetCloseness scores how close the population sits to its target,
// 1 at the target and 0 at twice the distance or more.
func targetCloseness(total, target int) float64 {
	if target == 0 {
		return 0
	}
	miss := math.Abs(float64(total-target)) / float64(target)
	score := 1 - miss
	if score < 0 {
		return 0
	}
	return score
}
