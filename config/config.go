// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Population  PopulationConfig  `yaml:"population"`
	Lifecycle   LifecycleConfig   `yaml:"lifecycle"`
	Division    DivisionConfig    `yaml:"division"`
	Stem        StemConfig        `yaml:"stem"`
	Succession  SuccessionConfig  `yaml:"succession"`
	Homeostasis HomeostasisConfig `yaml:"homeostasis"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// WorldConfig holds spatial parameters. The world is a disc centered on
// the origin; cells only ever request positions, never move themselves.
type WorldConfig struct {
	BoundaryRadius float64 `yaml:"boundary_radius"` // disc radius, 50..10000
	SpawnOffset    float64 `yaml:"spawn_offset"`    // child placement distance from parent
	GridCellSize   float64 `yaml:"grid_cell_size"`  // spatial grid resolution
}

// PopulationConfig holds population targets.
type PopulationConfig struct {
	Capacity     int    `yaml:"capacity"`      // hard division gate, 10..10000
	Target       int    `yaml:"target"`        // homeostasis setpoint, 1..capacity
	InitialClone string `yaml:"initial_clone"` // seed stem cell's clone label
}

// LifecycleConfig holds per-cell aging parameters.
type LifecycleConfig struct {
	MaxAgeBase            int     `yaml:"max_age_base"`            // frames, jittered per cell
	MaxAgeJitter          float64 `yaml:"max_age_jitter"`          // +/- fraction, 0..1
	DivisionThreshold     float64 `yaml:"division_threshold"`      // age fraction ending DIVIDING, 0..1
	SenescenceThreshold   float64 `yaml:"senescence_threshold"`    // age fraction entering SENESCENT, 0..1
	SenescentAging        int     `yaml:"senescent_aging"`         // aging multiplier once senescent, >=1
	TransitionFlashFrames int     `yaml:"transition_flash_frames"` // render marker lifetime
	LinkLifetimeFrames    int     `yaml:"link_lifetime_frames"`    // parent/child marker lifetime
}

// DivisionConfig holds division rate parameters.
type DivisionConfig struct {
	CooldownFrames  int     `yaml:"cooldown_frames"`
	BaseProbability float64 `yaml:"base_probability"` // per-tick division chance, 0..1
	MinProbability  float64 `yaml:"min_probability"`
	MaxProbability  float64 `yaml:"max_probability"`
}

// StemConfig holds stem cell parameters.
type StemConfig struct {
	ActivationThreshold float64 `yaml:"activation_threshold"` // global default, 0..1
	MinThreshold        float64 `yaml:"min_threshold"`        // per-clone adjustment floor
	MaxThreshold        float64 `yaml:"max_threshold"`        // per-clone adjustment ceiling
	MaxDivisions        int     `yaml:"max_divisions"`        // per-clone division budget, >=1
	SuppressionStrength float64 `yaml:"suppression_strength"` // scales the pushed signal, 0..2
}

// SuccessionConfig holds succession trigger parameters.
type SuccessionConfig struct {
	DyingSignalThreshold int     `yaml:"dying_signal_threshold"` // senescent deaths before trigger 3
	NaturalSustainFrames int     `yaml:"natural_sustain_frames"` // low suppression frames for trigger 6
	DeclineSustainFrames int     `yaml:"decline_sustain_frames"` // sustained decline frames for trigger 5
	CrashRatio           float64 `yaml:"crash_ratio"`            // population crash fraction of capacity
	DeclineRatio         float64 `yaml:"decline_ratio"`          // shrunk-clone fraction of capacity
}

// HomeostasisConfig holds population controller parameters.
type HomeostasisConfig struct {
	BoundaryInterval int `yaml:"boundary_interval"` // frames between boundary senescence passes
	ResourceInterval int `yaml:"resource_interval"` // frames between crowding passes
	BalanceInterval  int `yaml:"balance_interval"`  // frames between balance passes

	BoundaryBand   float64 `yaml:"boundary_band"`   // fraction of radius counted as near-boundary
	CrowdingRadius float64 `yaml:"crowding_radius"` // neighbor query radius
	CrowdingLimit  int     `yaml:"crowding_limit"`  // neighbors tolerated before pressure

	BaseDeathRate float64 `yaml:"base_death_rate"`
	MinDeathRate  float64 `yaml:"min_death_rate"`
	MaxDeathRate  float64 `yaml:"max_death_rate"`

	DominanceShare      float64 `yaml:"dominance_share"`      // clone share counted as dominant
	PressureShare       float64 `yaml:"pressure_share"`       // share triggering selective pressure
	PressureFraction    float64 `yaml:"pressure_fraction"`    // oldest dividing cells targeted
	PressureProbability float64 `yaml:"pressure_probability"` // per-cell senescence chance
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"`  // ticks per stats window
	HistorySize int `yaml:"history_size"`  // clone history ring buffer samples
	SlopeWindow int `yaml:"slope_window"`  // samples used for trend regression
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. Out-of-range values
// are clamped to their documented bounds, not rejected.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.clampRanges()

	return cfg, nil
}

// clampRanges pins every parameter to its documented numeric range.
// The simulation is biologically notional, so bad input degrades to the
// nearest valid value instead of failing the run.
func (c *Config) clampRanges() {
	c.World.BoundaryRadius = clampF("world.boundary_radius", c.World.BoundaryRadius, 50, 10000)
	c.World.SpawnOffset = clampF("world.spawn_offset", c.World.SpawnOffset, 1, c.World.BoundaryRadius)
	c.World.GridCellSize = clampF("world.grid_cell_size", c.World.GridCellSize, 4, c.World.BoundaryRadius)

	c.Population.Capacity = clampI("population.capacity", c.Population.Capacity, 10, 10000)
	c.Population.Target = clampI("population.target", c.Population.Target, 1, c.Population.Capacity)

	c.Lifecycle.MaxAgeBase = clampI("lifecycle.max_age_base", c.Lifecycle.MaxAgeBase, 10, 1_000_000)
	c.Lifecycle.MaxAgeJitter = clampF("lifecycle.max_age_jitter", c.Lifecycle.MaxAgeJitter, 0, 1)
	c.Lifecycle.DivisionThreshold = clampF("lifecycle.division_threshold", c.Lifecycle.DivisionThreshold, 0, 1)
	c.Lifecycle.SenescenceThreshold = clampF("lifecycle.senescence_threshold", c.Lifecycle.SenescenceThreshold, c.Lifecycle.DivisionThreshold, 1)
	c.Lifecycle.SenescentAging = clampI("lifecycle.senescent_aging", c.Lifecycle.SenescentAging, 1, 16)
	c.Lifecycle.TransitionFlashFrames = clampI("lifecycle.transition_flash_frames", c.Lifecycle.TransitionFlashFrames, 0, 600)
	c.Lifecycle.LinkLifetimeFrames = clampI("lifecycle.link_lifetime_frames", c.Lifecycle.LinkLifetimeFrames, 0, 600)

	c.Division.CooldownFrames = clampI("division.cooldown_frames", c.Division.CooldownFrames, 0, 10000)
	c.Division.MinProbability = clampF("division.min_probability", c.Division.MinProbability, 0, 1)
	c.Division.MaxProbability = clampF("division.max_probability", c.Division.MaxProbability, c.Division.MinProbability, 1)
	c.Division.BaseProbability = clampF("division.base_probability", c.Division.BaseProbability, c.Division.MinProbability, c.Division.MaxProbability)

	c.Stem.MinThreshold = clampF("stem.min_threshold", c.Stem.MinThreshold, 0, 1)
	c.Stem.MaxThreshold = clampF("stem.max_threshold", c.Stem.MaxThreshold, c.Stem.MinThreshold, 1)
	c.Stem.ActivationThreshold = clampF("stem.activation_threshold", c.Stem.ActivationThreshold, c.Stem.MinThreshold, c.Stem.MaxThreshold)
	c.Stem.MaxDivisions = clampI("stem.max_divisions", c.Stem.MaxDivisions, 1, 1000)
	c.Stem.SuppressionStrength = clampF("stem.suppression_strength", c.Stem.SuppressionStrength, 0, 2)

	c.Succession.DyingSignalThreshold = clampI("succession.dying_signal_threshold", c.Succession.DyingSignalThreshold, 1, 1000)
	c.Succession.NaturalSustainFrames = clampI("succession.natural_sustain_frames", c.Succession.NaturalSustainFrames, 1, 100000)
	c.Succession.DeclineSustainFrames = clampI("succession.decline_sustain_frames", c.Succession.DeclineSustainFrames, 1, 100000)
	c.Succession.CrashRatio = clampF("succession.crash_ratio", c.Succession.CrashRatio, 0, 1)
	c.Succession.DeclineRatio = clampF("succession.decline_ratio", c.Succession.DeclineRatio, 0, 1)

	c.Homeostasis.BoundaryInterval = clampI("homeostasis.boundary_interval", c.Homeostasis.BoundaryInterval, 1, 100000)
	c.Homeostasis.ResourceInterval = clampI("homeostasis.resource_interval", c.Homeostasis.ResourceInterval, 1, 100000)
	c.Homeostasis.BalanceInterval = clampI("homeostasis.balance_interval", c.Homeostasis.BalanceInterval, 1, 100000)
	c.Homeostasis.BoundaryBand = clampF("homeostasis.boundary_band", c.Homeostasis.BoundaryBand, 0, 1)
	c.Homeostasis.CrowdingRadius = clampF("homeostasis.crowding_radius", c.Homeostasis.CrowdingRadius, 1, c.World.BoundaryRadius)
	c.Homeostasis.CrowdingLimit = clampI("homeostasis.crowding_limit", c.Homeostasis.CrowdingLimit, 1, 1000)
	c.Homeostasis.MinDeathRate = clampF("homeostasis.min_death_rate", c.Homeostasis.MinDeathRate, 0, 1)
	c.Homeostasis.MaxDeathRate = clampF("homeostasis.max_death_rate", c.Homeostasis.MaxDeathRate, c.Homeostasis.MinDeathRate, 1)
	c.Homeostasis.BaseDeathRate = clampF("homeostasis.base_death_rate", c.Homeostasis.BaseDeathRate, c.Homeostasis.MinDeathRate, c.Homeostasis.MaxDeathRate)
	c.Homeostasis.DominanceShare = clampF("homeostasis.dominance_share", c.Homeostasis.DominanceShare, 0, 1)
	c.Homeostasis.PressureShare = clampF("homeostasis.pressure_share", c.Homeostasis.PressureShare, 0, 1)
	c.Homeostasis.PressureFraction = clampF("homeostasis.pressure_fraction", c.Homeostasis.PressureFraction, 0, 1)
	c.Homeostasis.PressureProbability = clampF("homeostasis.pressure_probability", c.Homeostasis.PressureProbability, 0, 1)

	c.Telemetry.StatsWindow = clampI("telemetry.stats_window", c.Telemetry.StatsWindow, 1, 1_000_000)
	c.Telemetry.HistorySize = clampI("telemetry.history_size", c.Telemetry.HistorySize, 2, 100000)
	c.Telemetry.SlopeWindow = clampI("telemetry.slope_window", c.Telemetry.SlopeWindow, 2, c.Telemetry.HistorySize)
}

func clampF(name string, v, lo, hi float64) float64 {
	if v < lo {
		slog.Warn("config value clamped", "param", name, "value", v, "bound", lo)
		return lo
	}
	if v > hi {
		slog.Warn("config value clamped", "param", name, "value", v, "bound", hi)
		return hi
	}
	return v
}

func clampI(name string, v, lo, hi int) int {
	if v < lo {
		slog.Warn("config value clamped", "param", name, "value", v, "bound", lo)
		return lo
	}
	if v > hi {
		slog.Warn("config value clamped", "param", name, "value", v, "bound", hi)
		return hi
	}
	return v
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
