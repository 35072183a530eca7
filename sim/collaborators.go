package sim

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/clonal/components"
	"github.com/pthm-cable/clonal/systems"
)

// Placer decides where new cells appear. Cells never move after
// placement, so the placer is the only source of spatial structure.
type Placer interface {
	// NearParent places a division child next to its parent.
	NearParent(parent components.Position, rng *rand.Rand) components.Position

	// NearCenter places a seeded stem cell.
	NearCenter(rng *rand.Rand) components.Position
}

// SpatialQuerier answers neighborhood and boundary questions for the
// population controller.
type SpatialQuerier interface {
	Clear()
	Insert(e ecs.Entity, x, y float64)
	Neighbors(dst []systems.Neighbor, x, y, radius float64, exclude ecs.Entity, posMap *ecs.Map1[components.Position]) []systems.Neighbor
	BoundaryDistance(x, y float64) float64
}

// RadialPlacer places children a fixed offset from the parent in a
// random direction, clamped inside the disc.
type RadialPlacer struct {
	Radius float64
	Offset float64
}

// NearParent returns a position one spawn offset away from the parent.
func (p *RadialPlacer) NearParent(parent components.Position, rng *rand.Rand) components.Position {
	angle := rng.Float64() * 2 * math.Pi
	x := float64(parent.X) + math.Cos(angle)*p.Offset
	y := float64(parent.Y) + math.Sin(angle)*p.Offset
	return p.clampToDisc(x, y)
}

// NearCenter returns a position in the inner quarter of the disc.
func (p *RadialPlacer) NearCenter(rng *rand.Rand) components.Position {
	angle := rng.Float64() * 2 * math.Pi
	r := rng.Float64() * p.Radius * 0.25
	return components.Position{
		X: float32(math.Cos(angle) * r),
		Y: float32(math.Sin(angle) * r),
	}
}

func (p *RadialPlacer) clampToDisc(x, y float64) components.Position {
	d := math.Hypot(x, y)
	if d > p.Radius {
		scale := p.Radius / d
		x *= scale
		y *= scale
	}
	return components.Position{X: float32(x), Y: float32(y)}
}

// DiscSpace is the default SpatialQuerier backed by a grid over the disc.
type DiscSpace struct {
	grid   *systems.SpatialGrid
	radius float64
}

// NewDiscSpace creates a DiscSpace for a disc of the given radius.
func NewDiscSpace(radius, cellSize float64) *DiscSpace {
	return &DiscSpace{
		grid:   systems.NewSpatialGrid(radius, cellSize),
		radius: radius,
	}
}

func (d *DiscSpace) Clear() {
	d.grid.Clear()
}

func (d *DiscSpace) Insert(e ecs.Entity, x, y float64) {
	d.grid.Insert(e, x, y)
}

func (d *DiscSpace) Neighbors(dst []systems.Neighbor, x, y, radius float64, exclude ecs.Entity, posMap *ecs.Map1[components.Position]) []systems.Neighbor {
	return d.grid.QueryRadiusInto(dst, x, y, radius, exclude, posMap)
}

func (d *DiscSpace) BoundaryDistance(x, y float64) float64 {
	return systems.BoundaryDistance(x, y, d.radius)
}
