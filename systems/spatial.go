package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/clonal/components"
)

// Neighbor holds a nearby entity with its precomputed squared distance.
type Neighbor struct {
	E      ecs.Entity
	DistSq float64
}

// MaxQueryResults caps the number of neighbors returned by spatial
// queries so density spikes cannot cause unbounded work.
const MaxQueryResults = 128

// SpatialGrid provides neighbor lookups over the disc world using a
// cell-based grid covering the bounding square [-R, R]^2.
type SpatialGrid struct {
	cellSize float64
	cols     int
	radius   float64
	cells    [][]ecs.Entity
}

// NewSpatialGrid creates a grid covering a disc of the given radius.
func NewSpatialGrid(radius, cellSize float64) *SpatialGrid {
	cols := int(2*radius/cellSize) + 1
	cells := make([][]ecs.Entity, cols*cols)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}
	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		radius:   radius,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float64) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], e)
}

// QueryRadiusInto finds entities within radius of (x, y) and appends
// them to dst, up to MaxQueryResults. Reuse dst across calls to avoid
// allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float64, exclude ecs.Entity, posMap *ecs.Map1[components.Position]) []Neighbor {
	cellRadius := int(radius/g.cellSize) + 1
	centerCol := g.col(x)
	centerRow := g.col(y)
	radiusSq := radius * radius

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		col := centerCol + dc
		if col < 0 || col >= g.cols {
			continue
		}
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			row := centerRow + dr
			if row < 0 || row >= g.cols {
				continue
			}

			for _, e := range g.cells[row*g.cols+col] {
				if e == exclude {
					continue
				}
				pos := posMap.Get(e)
				if pos == nil {
					continue
				}
				dx := float64(pos.X) - x
				dy := float64(pos.Y) - y
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: e, DistSq: distSq})
					if len(dst) >= MaxQueryResults {
						return dst
					}
				}
			}
		}
	}

	return dst
}

// BoundaryDistance returns the distance from (x, y) to the disc
// boundary. Positions outside the disc report zero.
func BoundaryDistance(x, y, radius float64) float64 {
	d := radius - math.Hypot(x, y)
	if d < 0 {
		return 0
	}
	return d
}

// col maps a world coordinate in [-R, R] to a grid index.
func (g *SpatialGrid) col(v float64) int {
	c := int((v + g.radius) / g.cellSize)
	if c < 0 {
		c = 0
	} else if c >= g.cols {
		c = g.cols - 1
	}
	return c
}

func (g *SpatialGrid) cellIndex(x, y float64) int {
	return g.col(y)*g.cols + g.col(x)
}
