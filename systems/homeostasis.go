package systems

import "github.com/pthm-cable/clonal/components"

// DivisionRate returns the division probability for the given
// population/target ratio. Five-way piecewise: far below target runs at
// the maximum rate, far above at the minimum, with linear ramps between.
func DivisionRate(ratio, min, base, max float64) float64 {
	switch {
	case ratio < 0.5:
		return max
	case ratio < 0.8:
		return lerp(max, base, (ratio-0.5)/0.3)
	case ratio <= 1.0:
		return base
	case ratio < 1.2:
		return lerp(base, min, (ratio-1.0)/0.2)
	default:
		return min
	}
}

// DeathRate returns the reference senescence-forcing rate for the given
// population/target ratio, symmetric to DivisionRate.
func DeathRate(ratio, min, base, max float64) float64 {
	switch {
	case ratio < 0.5:
		return min
	case ratio < 0.8:
		return lerp(min, base, (ratio-0.5)/0.3)
	case ratio <= 1.0:
		return base
	case ratio < 1.2:
		return lerp(base, max, (ratio-1.0)/0.2)
	default:
		return max
	}
}

// Boundary and crowding pressure scaling.
const (
	boundaryPressureGain = 8.0
	crowdingPressureGain = 4.0
	sameCloneWeight      = 1.5 // niche competition weighs same-clone neighbors more
	youngCellFloor       = 0.25
)

// BoundarySenescenceProbability composes the per-cell Bernoulli
// parameter for boundary-induced senescence. proximity is 0 at the inner
// edge of the boundary band and 1 at the boundary itself; ageFrac is
// age/maxAge.
func BoundarySenescenceProbability(deathRate, proximity, ageFrac float64) float64 {
	return Clamp01(deathRate * boundaryPressureGain * Clamp01(proximity) * (youngCellFloor + ageFrac))
}

// CrowdingSenescenceProbability composes the Bernoulli parameter for
// resource-competition senescence. crowding is the neighbor excess over
// the tolerated limit, as a fraction of the limit; sameCloneFrac is the
// share of neighbors from the cell's own clone; scarcity reflects how
// far the population outruns its resource target.
func CrowdingSenescenceProbability(deathRate, crowding, sameCloneFrac, ageFrac, scarcity float64) float64 {
	if crowding <= 0 {
		return 0
	}
	return Clamp01(deathRate * crowdingPressureGain * crowding *
		(1 + sameCloneWeight*Clamp01(sameCloneFrac)) *
		(youngCellFloor + ageFrac) *
		scarcity)
}

// Scarcity returns the global resource-scarcity factor for a population
// against its target, clamped to [0.5, 2] so a momentary census blip
// cannot zero out or explode the pressure.
func Scarcity(total, target int) float64 {
	if target <= 0 {
		return 1
	}
	s := float64(total) / float64(target)
	if s < 0.5 {
		return 0.5
	}
	if s > 2 {
		return 2
	}
	return s
}

// CloneShares returns each clone's share of the total population.
func CloneShares(counts [components.NumClones]int) [components.NumClones]float64 {
	var shares [components.NumClones]float64
	var total int
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return shares
	}
	for i, n := range counts {
		shares[i] = float64(n) / float64(total)
	}
	return shares
}

// DominantClone reports the clone holding at least the threshold share,
// if any. Ties below the threshold report no dominant clone.
func DominantClone(shares [components.NumClones]float64, threshold float64) (components.Clone, bool) {
	for i, s := range shares {
		if s >= threshold {
			return components.Clone(i), true
		}
	}
	return 0, false
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
