// Package board defines the spatial and entity model of a skirmish: grid
// coordinates, terrain, and units.
package board

import "fmt"

// Coord is a grid coordinate. X grows east, Y grows south.
type Coord struct {
	X int `json:"x" yaml:"x" mapstructure:"x"`
	Y int `json:"y" yaml:"y" mapstructure:"y"`
}

// C is shorthand for Coord{X: x, Y: y}.
func C(x, y int) Coord {
	return Coord{X: x, Y: y}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add returns c shifted by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{X: c.X + d.X, Y: c.Y + d.Y}
}

// Less orders coordinates lexicographically on (X, Y).
func (c Coord) Less(o Coord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

// Manhattan returns the 4-directional distance between a and b.
func Manhattan(a, b Coord) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Adjacent reports whether a and b share an edge.
func Adjacent(a, b Coord) bool {
	return Manhattan(a, b) == 1
}

// Neighbors4 lists the four edge neighbours in a fixed order: north, east,
// south, west.
func Neighbors4(c Coord) [4]Coord {
	return [4]Coord{
		{c.X, c.Y - 1},
		{c.X + 1, c.Y},
		{c.X, c.Y + 1},
		{c.X - 1, c.Y},
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Facing is the cardinal direction a unit looks toward.
type Facing int

const (
	FacingNorth Facing = iota
	FacingEast
	FacingSouth
	FacingWest
)

var facingNames = map[Facing]string{
	FacingNorth: "N",
	FacingEast:  "E",
	FacingSouth: "S",
	FacingWest:  "W",
}

func (f Facing) String() string {
	if name, ok := facingNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FACING_%d", int(f))
}

// FacingToward returns the dominant cardinal direction from a to b. Ties
// between axes prefer the horizontal one. Identical coordinates keep current.
func FacingToward(a, b Coord, current Facing) Facing {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return current
	}
	if abs(dx) >= abs(dy) {
		if dx > 0 {
			return FacingEast
		}
		return FacingWest
	}
	if dy > 0 {
		return FacingSouth
	}
	return FacingNorth
}

// ParseFacing accepts the single-letter names produced by String. The empty
// string parses as north.
func ParseFacing(s string) (Facing, error) {
	switch s {
	case "", "N":
		return FacingNorth, nil
	case "E":
		return FacingEast, nil
	case "S":
		return FacingSouth, nil
	case "W":
		return FacingWest, nil
	default:
		return FacingNorth, fmt.Errorf("unknown facing %q", s)
	}
}
