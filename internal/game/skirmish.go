package game

import (
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
)

// SkirmishController plays every side with a fixed policy: strike an adjacent
// enemy if one exists, otherwise close in on the nearest enemy, then end the
// turn. Ties are broken with the state's RNG, so a match is reproducible
// from its seed.
type SkirmishController struct {
	moveBudget int

	turn     int
	moved    bool
	attacked bool
}

// NewSkirmishController creates a controller whose units move up to
// moveBudget cost per turn.
func NewSkirmishController(moveBudget int) *SkirmishController {
	return &SkirmishController{moveBudget: moveBudget, turn: -1}
}

func (c *SkirmishController) Decide(s *State) Command {
	if idx := s.TurnIndex(); idx != c.turn {
		c.turn, c.moved, c.attacked = idx, false, false
	}
	u, ok := s.Unit(s.CurrentUnit())
	if !ok || !u.Alive() {
		return EndTurn{Unit: s.CurrentUnit()}
	}

	if !c.attacked {
		if target, ok := c.pick(s, c.adjacentEnemies(s, u), func(e *board.Unit) int { return e.Stats.HP }); ok {
			c.attacked = true
			return Attack{Attacker: u.ID, Target: target.ID}
		}
	}

	if !c.moved && !c.attacked {
		c.moved = true
		if dest, ok := c.approach(s, u); ok {
			return Move{Unit: u.ID, Destination: dest}
		}
	}

	return EndTurn{Unit: u.ID}
}

func (c *SkirmishController) adjacentEnemies(s *State, u *board.Unit) []*board.Unit {
	var out []*board.Unit
	for _, other := range s.Units() {
		if other.Alive() && other.Team != u.Team && board.Adjacent(u.Pos, other.Pos) {
			out = append(out, other)
		}
	}
	return out
}

// approach picks the reachable tile closest to the nearest enemy. It reports
// false when no tile is an improvement on standing still.
func (c *SkirmishController) approach(s *State, u *board.Unit) (board.Coord, bool) {
	var enemies []*board.Unit
	for _, other := range s.Units() {
		if other.Alive() && other.Team != u.Team {
			enemies = append(enemies, other)
		}
	}
	target, ok := c.pick(s, enemies, func(e *board.Unit) int { return board.Manhattan(u.Pos, e.Pos) })
	if !ok {
		return board.Coord{}, false
	}

	reach, err := s.Reachable(u.ID, c.moveBudget)
	if err != nil {
		return board.Coord{}, false
	}
	best := board.Manhattan(u.Pos, target.Pos)
	var candidates []board.Coord
	for _, tile := range reach {
		d := board.Manhattan(tile, target.Pos)
		switch {
		case d < best:
			best = d
			candidates = []board.Coord{tile}
		case d == best && tile != u.Pos && len(candidates) > 0:
			candidates = append(candidates, tile)
		}
	}
	if len(candidates) == 0 {
		return board.Coord{}, false
	}
	return candidates[s.RNG().IntN(len(candidates))], true
}

// pick returns one of the units with the lowest score, drawing from the RNG
// only when there is a tie.
func (c *SkirmishController) pick(s *State, units []*board.Unit, score func(*board.Unit) int) (*board.Unit, bool) {
	var best []*board.Unit
	bestScore := 0
	for _, u := range units {
		sc := score(u)
		switch {
		case len(best) == 0 || sc < bestScore:
			best, bestScore = []*board.Unit{u}, sc
		case sc == bestScore:
			best = append(best, u)
		}
	}
	switch len(best) {
	case 0:
		return nil, false
	case 1:
		return best[0], true
	default:
		return best[s.RNG().IntN(len(best))], true
	}
}
