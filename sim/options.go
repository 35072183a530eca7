package sim

// Options configures a Simulation beyond the config file.
type Options struct {
	// Seed for the deterministic RNG. Two simulations with equal config
	// and seed produce identical runs.
	Seed int64

	// LogStats emits window stats through slog on every flush.
	LogStats bool

	// OutputDir enables CSV output when non-empty.
	OutputDir string

	// SnapshotDir is where SaveSnapshot writes JSON state dumps.
	SnapshotDir string

	// Placer overrides child placement. Nil uses a RadialPlacer.
	Placer Placer

	// Space overrides the spatial index. Nil uses a DiscSpace.
	Space SpatialQuerier
}
