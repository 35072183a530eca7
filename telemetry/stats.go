package telemetry

import "log/slog"

// WindowStats holds aggregated statistics for a tick window.
type WindowStats struct {
	WindowStartTick int32 `csv:"-"`
	WindowEndTick   int32 `csv:"window_end"`

	// Population counts at window end
	Total       int `csv:"total"`
	RedCount    int `csv:"red"`
	GreenCount  int `csv:"green"`
	BlueCount   int `csv:"blue"`
	Dividing    int `csv:"dividing"`
	NonDividing int `csv:"non_dividing"`
	Senescent   int `csv:"senescent"`

	DormantStems int `csv:"dormant_stems"`
	ActiveStems  int `csv:"active_stems"`

	// Events during window
	RedBirths   int `csv:"red_births"`
	GreenBirths int `csv:"green_births"`
	BlueBirths  int `csv:"blue_births"`
	RedDeaths   int `csv:"red_deaths"`
	GreenDeaths int `csv:"green_deaths"`
	BlueDeaths  int `csv:"blue_deaths"`

	SenescentDeaths int     `csv:"senescent_deaths"`
	MeanLifespan    float64 `csv:"mean_lifespan"` // mean age in frames of cells removed this window
	BoundaryForced  int     `csv:"boundary_forced"`
	CrowdingForced  int     `csv:"crowding_forced"`
	PressureForced  int     `csv:"pressure_forced"`
	Successions     int     `csv:"successions"`
	Activations     int     `csv:"activations"`
	Deactivations   int     `csv:"deactivations"`

	// Control state sampled at window end
	ActiveClone      string  `csv:"active_clone"`
	SuppressionLevel float64 `csv:"suppression"`
	DivisionRate     float64 `csv:"division_rate"`
	MeanGeneration   float64 `csv:"mean_generation"`
	MeanAgeFraction  float64 `csv:"mean_age_fraction"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("total", s.Total),
		slog.Int("red", s.RedCount),
		slog.Int("green", s.GreenCount),
		slog.Int("blue", s.BlueCount),
		slog.Int("dividing", s.Dividing),
		slog.Int("non_dividing", s.NonDividing),
		slog.Int("senescent", s.Senescent),
		slog.Int("dormant_stems", s.DormantStems),
		slog.Int("active_stems", s.ActiveStems),
		slog.Int("red_births", s.RedBirths),
		slog.Int("green_births", s.GreenBirths),
		slog.Int("blue_births", s.BlueBirths),
		slog.Int("red_deaths", s.RedDeaths),
		slog.Int("green_deaths", s.GreenDeaths),
		slog.Int("blue_deaths", s.BlueDeaths),
		slog.Int("senescent_deaths", s.SenescentDeaths),
		slog.Float64("mean_lifespan", s.MeanLifespan),
		slog.Int("boundary_forced", s.BoundaryForced),
		slog.Int("crowding_forced", s.CrowdingForced),
		slog.Int("pressure_forced", s.PressureForced),
		slog.Int("successions", s.Successions),
		slog.Int("activations", s.Activations),
		slog.Int("deactivations", s.Deactivations),
		slog.String("active_clone", s.ActiveClone),
		slog.Float64("suppression", s.SuppressionLevel),
		slog.Float64("division_rate", s.DivisionRate),
		slog.Float64("mean_generation", s.MeanGeneration),
		slog.Float64("mean_age_fraction", s.MeanAgeFraction),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"total", s.Total,
		"red", s.RedCount,
		"green", s.GreenCount,
		"blue", s.BlueCount,
		"dividing", s.Dividing,
		"non_dividing", s.NonDividing,
		"senescent", s.Senescent,
		"dormant_stems", s.DormantStems,
		"active_stems", s.ActiveStems,
		"red_births", s.RedBirths,
		"green_births", s.GreenBirths,
		"blue_births", s.BlueBirths,
		"red_deaths", s.RedDeaths,
		"green_deaths", s.GreenDeaths,
		"blue_deaths", s.BlueDeaths,
		"senescent_deaths", s.SenescentDeaths,
		"mean_lifespan", s.MeanLifespan,
		"boundary_forced", s.BoundaryForced,
		"crowding_forced", s.CrowdingForced,
		"pressure_forced", s.PressureForced,
		"successions", s.Successions,
		"activations", s.Activations,
		"deactivations", s.Deactivations,
		"active_clone", s.ActiveClone,
		"suppression", s.SuppressionLevel,
		"division_rate", s.DivisionRate,
		"mean_generation", s.MeanGeneration,
		"mean_age_fraction", s.MeanAgeFraction,
	)
}
