package components

// Position represents an entity's world position. The world is a disc
// centered on the origin; the boundary radius lives in config.
type Position struct {
	X, Y float32
}
