// Package main provides CMA-ES optimization for clonal succession
// simulation parameters.
package main

import (
	"github.com/pthm-cable/clonal/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
// Structural knobs (capacity, world radius, telemetry) stay locked; the
// optimizer tunes the dynamics that decide whether succession cycles
// keep turning over.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Lifecycle
			{Name: "max_age_base", Path: "lifecycle.max_age_base", Min: 600, Max: 7200, Default: 1800},
			{Name: "max_age_jitter", Path: "lifecycle.max_age_jitter", Min: 0.0, Max: 0.5, Default: 0.2},
			{Name: "senescent_aging", Path: "lifecycle.senescent_aging", Min: 2, Max: 8, Default: 4},
			// Division
			{Name: "division_base_prob", Path: "division.base_probability", Min: 0.005, Max: 0.05, Default: 0.02},
			{Name: "division_max_prob", Path: "division.max_probability", Min: 0.04, Max: 0.2, Default: 0.08},
			{Name: "division_cooldown", Path: "division.cooldown_frames", Min: 10, Max: 120, Default: 30},
			// Stem
			{Name: "activation_threshold", Path: "stem.activation_threshold", Min: 0.1, Max: 0.6, Default: 0.3},
			{Name: "max_divisions", Path: "stem.max_divisions", Min: 4, Max: 40, Default: 10},
			{Name: "suppression_strength", Path: "stem.suppression_strength", Min: 0.2, Max: 2.0, Default: 1.0},
			// Succession
			{Name: "dying_signal_threshold", Path: "succession.dying_signal_threshold", Min: 3, Max: 40, Default: 10},
			{Name: "natural_sustain_frames", Path: "succession.natural_sustain_frames", Min: 30, Max: 600, Default: 120},
			{Name: "decline_sustain_frames", Path: "succession.decline_sustain_frames", Min: 20, Max: 400, Default: 60},
			{Name: "crash_ratio", Path: "succession.crash_ratio", Min: 0.05, Max: 0.3, Default: 0.15},
			{Name: "decline_ratio", Path: "succession.decline_ratio", Min: 0.1, Max: 0.5, Default: 0.3},
			// Homeostasis
			{Name: "base_death_rate", Path: "homeostasis.base_death_rate", Min: 0.002, Max: 0.05, Default: 0.01},
			{Name: "boundary_band", Path: "homeostasis.boundary_band", Min: 0.05, Max: 0.4, Default: 0.15},
			{Name: "crowding_limit", Path: "homeostasis.crowding_limit", Min: 3, Max: 15, Default: 6},
			{Name: "pressure_probability", Path: "homeostasis.pressure_probability", Min: 0.05, Max: 0.5, Default: 0.2},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	i := 0

	cfg.Lifecycle.MaxAgeBase = int(clamped[i]); i++
	cfg.Lifecycle.MaxAgeJitter = clamped[i]; i++
	cfg.Lifecycle.SenescentAging = int(clamped[i]); i++

	cfg.Division.BaseProbability = clamped[i]; i++
	cfg.Division.MaxProbability = clamped[i]; i++
	cfg.Division.CooldownFrames = int(clamped[i]); i++

	cfg.Stem.ActivationThreshold = clamped[i]; i++
	cfg.Stem.MaxDivisions = int(clamped[i]); i++
	cfg.Stem.SuppressionStrength = clamped[i]; i++

	cfg.Succession.DyingSignalThreshold = int(clamped[i]); i++
	cfg.Succession.NaturalSustainFrames = int(clamped[i]); i++
	cfg.Succession.DeclineSustainFrames = int(clamped[i]); i++
	cfg.Succession.CrashRatio = clamped[i]; i++
	cfg.Succession.DeclineRatio = clamped[i]; i++

	cfg.Homeostasis.BaseDeathRate = clamped[i]; i++
	cfg.Homeostasis.BoundaryBand = clamped[i]; i++
	cfg.Homeostasis.CrowdingLimit = int(clamped[i]); i++
	cfg.Homeostasis.PressureProbability = clamped[i]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		float64(cfg.Lifecycle.MaxAgeBase),
		cfg.Lifecycle.MaxAgeJitter,
		float64(cfg.Lifecycle.SenescentAging),

		cfg.Division.BaseProbability,
		cfg.Division.MaxProbability,
		float64(cfg.Division.CooldownFrames),

		cfg.Stem.ActivationThreshold,
		float64(cfg.Stem.MaxDivisions),
		cfg.Stem.SuppressionStrength,

		float64(cfg.Succession.DyingSignalThreshold),
		float64(cfg.Succession.NaturalSustainFrames),
		float64(cfg.Succession.DeclineSustainFrames),
		cfg.Succession.CrashRatio,
		cfg.Succession.DeclineRatio,

		cfg.Homeostasis.BaseDeathRate,
		cfg.Homeostasis.BoundaryBand,
		float64(cfg.Homeostasis.CrowdingLimit),
		cfg.Homeostasis.PressureProbability,
	}
}
