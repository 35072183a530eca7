package telemetry

// SuccessionRecord is one row of successions.csv, written as each
// succession executes.
type SuccessionRecord struct {
	Tick     int32  `csv:"tick"`
	OldClone string `csv:"old_clone"`
	NewClone string `csv:"new_clone"`
	Reason   string `csv:"reason"`
	Urgency  int    `csv:"urgency"`
	Strategy string `csv:"strategy"`

	// Population snapshot at the moment of succession
	Total            int     `csv:"total"`
	OldCloneCount    int     `csv:"old_clone_count"`
	NewCloneCount    int     `csv:"new_clone_count"`
	SuppressionLevel float64 `csv:"suppression"`
}
