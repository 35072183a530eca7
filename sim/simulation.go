// Package sim runs the clonal succession simulation: a fixed-timestep,
// seed-deterministic loop over an ECS world of cells, stem cells, and
// the manager state coordinating succession and homeostasis.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/config"
	"github.com/pthm-cable/clonal/systems"
	"github.com/pthm-cable/clonal/telemetry"
)

// initialSuccessionGrace blocks succession triggers while the seeded
// population establishes itself; a one-cell colony trivially satisfies
// the crash condition otherwise.
const initialSuccessionGrace = 180

// Link marks a parent/child pair for rendering collaborators. Links are
// cosmetic and expire on a frame countdown.
type Link struct {
	Parent ecs.Entity
	Child  ecs.Entity
	TTL    int32
}

// Simulation holds the complete simulation state.
type Simulation struct {
	world *ecs.World
	rng   *rand.Rand
	seed  int64
	cfg   *config.Config

	// Entity mappers: plain cells carry Position+Cell, stem cells add Stem.
	cellMapper *ecs.Map2[components.Position, components.Cell]
	stemMapper *ecs.Map3[components.Position, components.Cell, components.Stem]
	cellFilter *ecs.Filter2[components.Position, components.Cell]
	stemFilter *ecs.Filter3[components.Position, components.Cell, components.Stem]

	// Individual component mappers for lookups
	posMap  *ecs.Map1[components.Position]
	cellMap *ecs.Map1[components.Cell]
	stemMap *ecs.Map1[components.Stem]

	placer Placer
	space  SpatialQuerier

	// State
	tick       int32
	nextID     uint32
	generation uint32

	// Aggregates refreshed each tick
	total            int
	cloneCounts      [components.NumClones]int
	cloneStateCounts [components.NumClones][3]int
	stateCounts      [3]int
	stemCounts       [components.NumClones]int
	dormantStems     int
	activeStems      int
	meanGeneration   float64
	meanAgeFraction  float64

	histories [components.NumClones]*systems.History

	// Succession manager state
	activeClone          components.Clone
	suppressionLevel     float64
	thresholds           [components.NumClones]float64
	lastActivated        [components.NumClones]int32
	dyingSignals         int
	successionCooldown   int32
	lowSuppressionFrames int32
	declineFrames        int32
	successions          int

	// Homeostasis state
	divisionProbability float64
	deathRate           float64

	links []Link

	// Telemetry
	events      []telemetry.Event
	collector   *telemetry.Collector
	bookmarks   *telemetry.BookmarkDetector
	output      *telemetry.OutputManager
	logStats    bool
	snapshotDir string

	// Scratch buffer for neighbor queries
	neighbors []systems.Neighbor
}

// New creates a simulation from the given config and options, seeding a
// single stem cell of the configured initial clone.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	world := ecs.NewWorld()

	s := &Simulation{
		world:      world,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		seed:       opts.Seed,
		cfg:        cfg,
		cellMapper: ecs.NewMap2[components.Position, components.Cell](world),
		stemMapper: ecs.NewMap3[components.Position, components.Cell, components.Stem](world),
		cellFilter: ecs.NewFilter2[components.Position, components.Cell](world),
		stemFilter: ecs.NewFilter3[components.Position, components.Cell, components.Stem](world),
		posMap:     ecs.NewMap1[components.Position](world),
		cellMap:    ecs.NewMap1[components.Cell](world),
		stemMap:    ecs.NewMap1[components.Stem](world),

		logStats:    opts.LogStats,
		snapshotDir: opts.SnapshotDir,
		collector:   telemetry.NewCollector(int32(cfg.Telemetry.StatsWindow)),
		bookmarks:   telemetry.NewBookmarkDetector(8, cfg.Population.Target),
		neighbors:   make([]systems.Neighbor, 0, systems.MaxQueryResults),
	}

	s.placer = opts.Placer
	if s.placer == nil {
		s.placer = &RadialPlacer{
			Radius: cfg.World.BoundaryRadius,
			Offset: cfg.World.SpawnOffset,
		}
	}
	s.space = opts.Space
	if s.space == nil {
		s.space = NewDiscSpace(cfg.World.BoundaryRadius, cfg.World.GridCellSize)
	}

	for i := range s.histories {
		s.histories[i] = systems.NewHistory(cfg.Telemetry.HistorySize)
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	s.output = om
	if err := s.output.WriteConfig(cfg); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	s.seedPopulation()

	return s, nil
}

// seedPopulation resets the manager state and creates the single
// founding stem cell.
func (s *Simulation) seedPopulation() {
	clone := parseClone(s.cfg.Population.InitialClone)
	s.activeClone = clone
	s.suppressionLevel = 1
	for i := range s.thresholds {
		s.thresholds[i] = s.cfg.Stem.ActivationThreshold
		s.lastActivated[i] = 0
	}
	s.dyingSignals = 0
	s.successionCooldown = initialSuccessionGrace
	s.lowSuppressionFrames = 0
	s.declineFrames = 0
	s.successions = 0
	s.divisionProbability = s.cfg.Division.BaseProbability
	s.deathRate = s.cfg.Homeostasis.BaseDeathRate
	s.links = s.links[:0]

	e := s.createStemCell(clone, s.placer.NearCenter(s.rng))
	cell := s.cellMap.Get(e)
	stem := s.stemMap.Get(e)
	systems.ActivateStem(cell, stem, s.cfg.Stem.MaxDivisions)
	s.lastActivated[clone] = s.tick
	s.events = append(s.events, telemetry.NewStemActivatedEvent(s.tick, cell.ID, clone))
	s.collector.RecordActivation()
}

// parseClone maps a config label to a clone, defaulting to red.
func parseClone(label string) components.Clone {
	for _, c := range components.Clones() {
		if c.String() == label {
			return c
		}
	}
	return components.CloneRed
}

// createStemCell creates a dormant stem cell of the given clone.
func (s *Simulation) createStemCell(clone components.Clone, pos components.Position) ecs.Entity {
	id := s.nextID
	s.nextID++

	cell := components.Cell{
		ID:            id,
		Clone:         clone,
		Generation:    s.generation,
		MaxAge:        systems.JitteredMaxAge(s.cfg.Lifecycle.MaxAgeBase, s.cfg.Lifecycle.MaxAgeJitter, s.rng),
		State:         components.StateDividing,
		DivisionsLeft: s.cfg.Stem.MaxDivisions,
		CanDivide:     true,
	}
	stem := components.Stem{
		State:            components.StemDormant,
		SuppressionLevel: 1,
		MaxDivisions:     s.cfg.Stem.MaxDivisions,
	}

	e := s.stemMapper.NewEntity(&pos, &cell, &stem)
	s.total++
	s.events = append(s.events, telemetry.NewCellCreatedEvent(s.tick, id, clone))
	s.collector.RecordBirth(clone)
	return e
}

// Step advances the simulation by one frame. Stage order is fixed:
// aging and removal, divisions, census, suppression, succession,
// homeostasis, telemetry.
func (s *Simulation) Step() {
	s.refreshSpace()
	s.updateCells()
	s.processDivisions()
	s.refreshAggregates()
	s.updateSuppressionSignal()
	s.checkActivationConditions()
	s.updateHomeostasis()
	s.flushTelemetry()
	s.tick++
}

// refreshSpace rebuilds the spatial index from live cells.
func (s *Simulation) refreshSpace() {
	s.space.Clear()
	query := s.cellFilter.Query()
	for query.Next() {
		pos, _ := query.Get()
		s.space.Insert(query.Entity(), float64(pos.X), float64(pos.Y))
	}
}

// DrainEvents returns the events emitted since the last drain and
// clears the buffer. The returned slice is invalidated by the next Step.
func (s *Simulation) DrainEvents() []telemetry.Event {
	out := s.events
	s.events = s.events[:0]
	return out
}

// Reset returns the simulation to its initial state. The RNG is
// reseeded, so a Reset run replays identically to a fresh one.
func (s *Simulation) Reset() {
	var toRemove []ecs.Entity
	query := s.cellFilter.Query()
	for query.Next() {
		toRemove = append(toRemove, query.Entity())
	}
	for _, e := range toRemove {
		s.removeEntity(e)
	}

	s.rng = rand.New(rand.NewSource(s.seed))
	s.tick = 0
	s.nextID = 0
	s.generation = 0
	s.total = 0
	s.events = s.events[:0]
	s.collector = telemetry.NewCollector(int32(s.cfg.Telemetry.StatsWindow))
	s.bookmarks = telemetry.NewBookmarkDetector(8, s.cfg.Population.Target)
	for i := range s.histories {
		s.histories[i].Reset()
	}

	s.seedPopulation()
}

// removeEntity destroys a cell entity. The entity itself is removed,
// not just its components, so world.Alive reports its death and the
// world never accumulates empty husks.
func (s *Simulation) removeEntity(e ecs.Entity) {
	s.world.RemoveEntity(e)
	s.total--
}

// Tick returns the current frame count.
func (s *Simulation) Tick() int32 {
	return s.tick
}

// Total returns the live cell count.
func (s *Simulation) Total() int {
	return s.total
}

// ActiveClone returns the currently producing clone.
func (s *Simulation) ActiveClone() components.Clone {
	return s.activeClone
}

// SuppressionLevel returns the global suppression scalar.
func (s *Simulation) SuppressionLevel() float64 {
	return s.suppressionLevel
}

// Successions returns the number of completed successions.
func (s *Simulation) Successions() int {
	return s.successions
}

// CloneCounts returns the per-clone population counts from the last census.
func (s *Simulation) CloneCounts() [components.NumClones]int {
	return s.cloneCounts
}

// DivisionProbability returns the current homeostatic division rate.
func (s *Simulation) DivisionProbability() float64 {
	return s.divisionProbability
}

// Links returns the live parent/child markers.
func (s *Simulation) Links() []Link {
	return s.links
}

// Close flushes and closes telemetry outputs.
func (s *Simulation) Close() error {
	if err := s.output.Close(); err != nil {
		return fmt.Errorf("sim: closing output: %w", err)
	}
	return nil
}

// logError reports a non-fatal error; telemetry failures never stop the run.
func (s *Simulation) logError(msg string, err error) {
	slog.Error(msg, "error", err)
}

// logSuccession reports a completed succession through slog.
func (s *Simulation) logSuccession(rec telemetry.SuccessionRecord) {
	slog.Info("succession",
		"tick", rec.Tick,
		"old_clone", rec.OldClone,
		"new_clone", rec.NewClone,
		"reason", rec.Reason,
		"urgency", rec.Urgency,
		"strategy", rec.Strategy,
		"total", rec.Total,
		"suppression", rec.SuppressionLevel,
	)
}
