package systems

import (
	"math/rand"

	"github.com/pthm-cable/clonal/components"
)

// Trigger reasons, in precedence order.
const (
	ReasonPopulationCrash   = "population_crash"
	ReasonStemExhaustion    = "stem_exhaustion"
	ReasonDyingSignals      = "dying_signals"
	ReasonSenescenceWave    = "senescence_wave"
	ReasonCloneDecline      = "clone_decline"
	ReasonNaturalSuccession = "natural_succession"
)

// highSenescenceRatio is the active-clone senescent fraction counted as
// a senescence wave.
const highSenescenceRatio = 0.5

// readyDormantProgress is the activation progress a dormant clone must
// show before natural succession fires.
const readyDormantProgress = 0.7

// Trigger is a satisfied succession condition. Urgency (1-10) sizes the
// post-succession cooldown.
type Trigger struct {
	Reason  string
	Urgency int
}

// TriggerInputs carries everything the trigger evaluation reads.
type TriggerInputs struct {
	Total    int
	Capacity int

	Suppression float64
	Threshold   float64 // global activation threshold

	ActiveStemsExhausted bool

	DyingSignals         int
	DyingSignalThreshold int

	ActiveSenescentRatio float64
	ActiveDeclining      bool
	ActiveCount          int

	CrashRatio   float64
	DeclineRatio float64

	DeclineSustainedFrames int32 // frames the decline condition has held
	DeclineSustainFrames   int

	LowSuppressionFrames int32 // frames suppression has sat below threshold
	NaturalSustainFrames int

	BestDormantProgress float64
}

// EvaluateTriggers checks the succession conditions in precedence order
// and returns the first satisfied one.
func EvaluateTriggers(in TriggerInputs) (Trigger, bool) {
	low := in.Suppression < in.Threshold

	switch {
	case float64(in.Total) < in.CrashRatio*float64(in.Capacity):
		return Trigger{ReasonPopulationCrash, 10}, true

	case in.ActiveStemsExhausted && low:
		return Trigger{ReasonStemExhaustion, 9}, true

	case in.DyingSignals >= in.DyingSignalThreshold && low:
		return Trigger{ReasonDyingSignals, 8}, true

	case in.ActiveSenescentRatio > highSenescenceRatio && in.ActiveDeclining && low:
		return Trigger{ReasonSenescenceWave, 7}, true

	case in.ActiveDeclining &&
		float64(in.ActiveCount) < in.DeclineRatio*float64(in.Capacity) &&
		low &&
		in.DeclineSustainedFrames > int32(in.DeclineSustainFrames):
		return Trigger{ReasonCloneDecline, 6}, true

	case in.LowSuppressionFrames > int32(in.NaturalSustainFrames) &&
		in.BestDormantProgress > readyDormantProgress:
		return Trigger{ReasonNaturalSuccession, 5}, true
	}

	return Trigger{}, false
}

// SuccessionCooldown returns the re-evaluation block in frames after a
// succession with the given urgency. More urgent successions allow the
// next evaluation sooner, but never under 60 frames.
func SuccessionCooldown(urgency int) int32 {
	frames := 180 - urgency*12
	if frames < 60 {
		frames = 60
	}
	return int32(frames)
}

// Selection strategy names.
const (
	StrategyHealthiest     = "healthiest"
	StrategyWeightedRandom = "weighted_random"
	StrategyRoundRobin     = "round_robin"
)

// CloneCandidate summarizes one dormant clone for selection.
type CloneCandidate struct {
	Clone components.Clone

	StemCount int

	// AvgBudgetFraction is the mean divisionsLeft/maxDivisions over the
	// clone's stem cells; a clone with no stems counts as 1 since
	// activation creates a fresh full-budget stem.
	AvgBudgetFraction float64

	LastActivated int32 // tick of the clone's most recent activation
}

// SelectInputs carries the state the selection strategy depends on.
type SelectInputs struct {
	Total            int
	Capacity         int
	SuccessionCount  int
	Tick             int32
	Candidates       []CloneCandidate
}

// SelectNextClone picks the successor clone. The strategy is itself
// conditional on system state: a crashed population takes the clone with
// the healthiest stem pool; a mid-sized population draws weighted-random;
// an established run with prior successions rotates to the least
// recently activated clone.
func SelectNextClone(in SelectInputs, rng *rand.Rand) (components.Clone, string) {
	if len(in.Candidates) == 0 {
		panic("systems: SelectNextClone with no candidates")
	}

	popRatio := 0.0
	if in.Capacity > 0 {
		popRatio = float64(in.Total) / float64(in.Capacity)
	}

	switch {
	case popRatio < 0.3:
		return healthiestClone(in.Candidates), StrategyHealthiest
	case popRatio < 0.7:
		return weightedRandomClone(in.Candidates, in.Tick, rng), StrategyWeightedRandom
	case in.SuccessionCount >= 3:
		return leastRecentClone(in.Candidates), StrategyRoundRobin
	default:
		return weightedRandomClone(in.Candidates, in.Tick, rng), StrategyWeightedRandom
	}
}

func healthiestClone(candidates []CloneCandidate) components.Clone {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.AvgBudgetFraction > best.AvgBudgetFraction {
			best = c
		}
	}
	return best.Clone
}

func leastRecentClone(candidates []CloneCandidate) components.Clone {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.LastActivated < best.LastActivated {
			best = c
		}
	}
	return best.Clone
}

// weightedRandomClone draws a clone with weight proportional to its stem
// pool size and how long it has sat inactive.
func weightedRandomClone(candidates []CloneCandidate, tick int32, rng *rand.Rand) components.Clone {
	weights := make([]float64, len(candidates))
	var total float64
	for i, c := range candidates {
		idle := float64(tick-c.LastActivated) / 1800.0
		if idle < 0 {
			idle = 0
		}
		w := float64(c.StemCount+1) * (1 + idle)
		weights[i] = w
		total += w
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return candidates[i].Clone
		}
	}
	return candidates[len(candidates)-1].Clone
}
