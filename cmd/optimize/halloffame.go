package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// HallEntry records one notable evaluation: the parameter values it ran
// with and the fitness it achieved.
type HallEntry struct {
	Eval    int                `json:"eval"`
	Fitness float64            `json:"fitness"`
	Params  map[string]float64 `json:"params"`
}

// HallOfFame keeps the best parameter sets seen during an optimization
// run, ordered by fitness ascending (lower is better).
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a hall of fame with the given capacity.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{maxSize: maxSize}
}

// Consider offers an evaluation to the hall. It is inserted if the hall
// has room or the fitness beats the current worst entry. Returns true
// if the entry was admitted.
func (hof *HallOfFame) Consider(eval int, fitness float64, params *ParamVector, values []float64) bool {
	if len(hof.entries) >= hof.maxSize && fitness >= hof.entries[len(hof.entries)-1].Fitness {
		return false
	}

	named := make(map[string]float64, len(params.Specs))
	for i, spec := range params.Specs {
		named[spec.Name] = values[i]
	}
	entry := HallEntry{Eval: eval, Fitness: fitness, Params: named}

	i := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Fitness > entry.Fitness
	})
	hof.entries = append(hof.entries, HallEntry{})
	copy(hof.entries[i+1:], hof.entries[i:])
	hof.entries[i] = entry

	if len(hof.entries) > hof.maxSize {
		hof.entries = hof.entries[:hof.maxSize]
	}
	return true
}

// Size returns the number of entries currently held.
func (hof *HallOfFame) Size() int {
	return len(hof.entries)
}

// Best returns the entry with the lowest fitness, if any.
func (hof *HallOfFame) Best() (HallEntry, bool) {
	if len(hof.entries) == 0 {
		return HallEntry{}, false
	}
	return hof.entries[0], true
}

// WriteJSON writes the hall to a JSON file.
func (hof *HallOfFame) WriteJSON(path string) error {
	data, err := json.MarshalIndent(hof.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing hall of fame: %w", err)
	}
	return nil
}
