package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/clonal/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete simulation state for replay.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	BoundaryRadius float64 `json:"boundary_radius"`

	Tick int32 `json:"tick"`

	Cells []CellState `json:"cells"`

	Manager ManagerState `json:"manager"`
}

// CellState holds one cell's complete state.
type CellState struct {
	ID         uint32           `json:"id"`
	Clone      components.Clone `json:"clone"`
	Generation uint32           `json:"generation"`

	X float32 `json:"x"`
	Y float32 `json:"y"`

	Age              int32 `json:"age"`
	MaxAge           int32 `json:"max_age"`
	State            int   `json:"state"`
	DivisionsLeft    int   `json:"divisions_left"`
	DivisionCount    int   `json:"division_count"`
	DivisionCooldown int32 `json:"division_cooldown"`
	CanDivide        bool  `json:"can_divide"`

	// Stem payload, present only for stem cells
	Stem *StemState `json:"stem,omitempty"`
}

// StemState holds the stem component for stem cells.
type StemState struct {
	State              components.StemState `json:"state"`
	Active             bool                 `json:"active"`
	SuppressionLevel   float64              `json:"suppression_level"`
	ActivationProgress float64              `json:"activation_progress"`
	MaxDivisions       int                  `json:"max_divisions"`
}

// ManagerState holds the succession manager's bookkeeping.
type ManagerState struct {
	ActiveClone          components.Clone                    `json:"active_clone"`
	SuppressionLevel     float64                             `json:"suppression_level"`
	Thresholds           [components.NumClones]float64       `json:"thresholds"`
	LastActivated        [components.NumClones]int32         `json:"last_activated"`
	DyingSignals         int                                 `json:"dying_signals"`
	SuccessionCooldown   int32                               `json:"succession_cooldown"`
	LowSuppressionFrames int32                               `json:"low_suppression_frames"`
	DeclineFrames        int32                               `json:"decline_frames"`
	Successions          int                                 `json:"successions"`
	NextCellID           uint32                              `json:"next_cell_id"`
	Generation           uint32                              `json:"generation"`
	DivisionProbability  float64                             `json:"division_probability"`
	DeathRate            float64                             `json:"death_rate"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d.json", snapshot.Tick)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
