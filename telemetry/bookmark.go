package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPopulationCrash    BookmarkType = "population_crash"
	BookmarkPopulationRecovery BookmarkType = "population_recovery"
	BookmarkStableHomeostasis  BookmarkType = "stable_homeostasis"
)

// Bookmark marks an interesting moment in a run for later inspection.
type Bookmark struct {
	Type        BookmarkType
	Tick        int32
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments across stats windows.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	target int // homeostasis population setpoint

	recentPeak         int // peak population in recent history
	recentTrough       int // minimum population since the last recovery
	stableWindowsCount int // consecutive windows holding near the target
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize, target int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stability detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
		target:      target,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkRecovery(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStableHomeostasis(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if stats.Total > bd.recentPeak {
		bd.recentPeak = stats.Total
	}
	if stats.Total < bd.recentTrough || bd.recentTrough == 0 {
		bd.recentTrough = stats.Total
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkCrash fires when the population drops more than 30% from its
// recent peak.
func (bd *BookmarkDetector) checkCrash(stats WindowStats) *Bookmark {
	if bd.recentPeak == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Total)/float64(bd.recentPeak)
	if dropPercent > 0.30 && stats.Total < bd.recentPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentPeak
		bd.recentPeak = stats.Total

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.Total),
		}
	}

	return nil
}

// checkRecovery fires when the population climbs back to at least 3x a
// deep trough and half the target.
func (bd *BookmarkDetector) checkRecovery(stats WindowStats) *Bookmark {
	if bd.recentTrough == 0 || bd.recentTrough > bd.target/4 {
		return nil
	}

	if stats.Total >= bd.recentTrough*3 && stats.Total >= bd.target/2 {
		oldTrough := bd.recentTrough
		bd.recentTrough = stats.Total

		return &Bookmark{
			Type:        BookmarkPopulationRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population recovered from %d to %d", oldTrough, stats.Total),
		}
	}

	return nil
}

// checkStableHomeostasis fires once after five consecutive low-variance
// windows holding near the target.
func (bd *BookmarkDetector) checkStableHomeostasis(stats WindowStats) *Bookmark {
	if stats.Total < bd.target/2 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	var sum float64
	for _, h := range history[len(history)-4:] {
		sum += float64(h.Total)
	}
	mean := sum / 4

	var variance float64
	for _, h := range history[len(history)-4:] {
		diff := float64(h.Total) - mean
		variance += diff * diff
	}
	variance /= 4

	// Low variance: coefficient of variation < 20%, near the target
	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}
	nearTarget := mean > 0.8*float64(bd.target) && mean < 1.2*float64(bd.target)

	if cv2 < 0.04 && nearTarget {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStableHomeostasis,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population stable at %d near target %d over 5+ windows", stats.Total, bd.target),
		}
	}

	return nil
}
