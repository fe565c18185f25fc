package board

import "fmt"

// Tile is the terrain at one coordinate.
type Tile struct {
	Cost    int
	Blocked bool
}

// Grid is a rectangular map of tiles. The bounds define the legal coordinate
// space for every unit and path.
type Grid struct {
	width  int
	height int
	tiles  []Tile
}

// NewGrid creates a width x height grid of open tiles costing 1.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", width, height)
	}
	tiles := make([]Tile, width*height)
	for i := range tiles {
		tiles[i].Cost = 1
	}
	return &Grid{width: width, height: height, tiles: tiles}, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// Tile returns the tile at c. Out of bounds coordinates read as blocked.
func (g *Grid) Tile(c Coord) Tile {
	if !g.InBounds(c) {
		return Tile{Blocked: true}
	}
	return g.tiles[c.Y*g.width+c.X]
}

// Cost returns the movement cost of entering c.
func (g *Grid) Cost(c Coord) int {
	return g.Tile(c).Cost
}

// Blocked reports whether c cannot be entered.
func (g *Grid) Blocked(c Coord) bool {
	return g.Tile(c).Blocked
}

// Passable reports whether c is in bounds and not blocked.
func (g *Grid) Passable(c Coord) bool {
	return g.InBounds(c) && !g.Blocked(c)
}

// SetCost sets the movement cost of c. Costs below 1 are raised to 1 so the
// Manhattan heuristic stays admissible.
func (g *Grid) SetCost(c Coord, cost int) error {
	if !g.InBounds(c) {
		return fmt.Errorf("coordinate %s out of bounds", c)
	}
	if cost < 1 {
		cost = 1
	}
	g.tiles[c.Y*g.width+c.X].Cost = cost
	return nil
}

// SetBlocked marks c as impassable or open.
func (g *Grid) SetBlocked(c Coord, blocked bool) error {
	if !g.InBounds(c) {
		return fmt.Errorf("coordinate %s out of bounds", c)
	}
	g.tiles[c.Y*g.width+c.X].Blocked = blocked
	return nil
}
