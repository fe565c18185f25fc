// Package game drives a skirmish: it owns the world state, turns controller
// commands into rule applications and events, and decides when a match is
// over.
package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/objectives"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rng"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rules"
)

// Outcome is the final result of a match from the player side's view.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
)

// StateOptions collects what NewState needs. Roster defaults to the order of
// Units when empty.
type StateOptions struct {
	Grid       *board.Grid
	Units      []*board.Unit
	Roster     []string
	Objective  objectives.Objective
	Controller Controller
	RNG        *rng.Source
	PlayerSide board.Side
}

// State is the whole simulation. It is owned by the goroutine that drives
// Loop.Tick and is not safe for concurrent use.
type State struct {
	grid       *board.Grid
	units      map[string]*board.Unit
	ids        []string // sorted; all iteration goes through this
	scheduler  *rules.TurnScheduler
	objective  objectives.Objective
	controller Controller
	rng        *rng.Source
	playerSide board.Side

	tick    int
	over    bool
	outcome Outcome
}

// NewState validates opts and assembles a ready-to-run state.
func NewState(opts StateOptions) (*State, error) {
	if opts.Grid == nil {
		return nil, fmt.Errorf("state requires a grid")
	}
	if len(opts.Units) == 0 {
		return nil, fmt.Errorf("state requires at least one unit")
	}
	if opts.Objective == nil {
		return nil, fmt.Errorf("state requires an objective")
	}
	if opts.RNG == nil {
		return nil, fmt.Errorf("state requires a random source")
	}
	if strings.TrimSpace(string(opts.PlayerSide)) == "" {
		return nil, fmt.Errorf("state requires a player side")
	}

	s := &State{
		grid:       opts.Grid,
		units:      make(map[string]*board.Unit, len(opts.Units)),
		ids:        make([]string, 0, len(opts.Units)),
		objective:  opts.Objective,
		controller: opts.Controller,
		rng:        opts.RNG,
		playerSide: opts.PlayerSide,
	}

	occupied := make(map[board.Coord]string, len(opts.Units))
	for _, u := range opts.Units {
		if u == nil || strings.TrimSpace(u.ID) == "" {
			return nil, fmt.Errorf("unit with empty id")
		}
		if _, dup := s.units[u.ID]; dup {
			return nil, fmt.Errorf("duplicate unit id %q", u.ID)
		}
		if !opts.Grid.InBounds(u.Pos) {
			return nil, fmt.Errorf("unit %q placed out of bounds at %s", u.ID, u.Pos)
		}
		if opts.Grid.Blocked(u.Pos) {
			return nil, fmt.Errorf("unit %q placed on blocked tile %s", u.ID, u.Pos)
		}
		if u.Alive() {
			if other, taken := occupied[u.Pos]; taken {
				return nil, fmt.Errorf("units %q and %q share tile %s", other, u.ID, u.Pos)
			}
			occupied[u.Pos] = u.ID
		}
		s.units[u.ID] = u
		s.ids = append(s.ids, u.ID)
	}
	sort.Strings(s.ids)

	roster := opts.Roster
	if len(roster) == 0 {
		roster = make([]string, len(opts.Units))
		for i, u := range opts.Units {
			roster[i] = u.ID
		}
	}
	scheduler, err := rules.NewTurnScheduler(roster, s)
	if err != nil {
		return nil, fmt.Errorf("failed to build turn scheduler: %w", err)
	}
	s.scheduler = scheduler

	return s, nil
}

// Grid returns the board terrain.
func (s *State) Grid() *board.Grid { return s.grid }

// Unit looks up a unit by id, dead or alive.
func (s *State) Unit(id string) (*board.Unit, bool) {
	u, ok := s.units[id]
	return u, ok
}

// LookupUnit is Unit with a typed error for unknown ids.
func (s *State) LookupUnit(id string) (*board.Unit, error) {
	u, ok := s.units[id]
	if !ok {
		return nil, &UnitNotFoundError{ID: id}
	}
	return u, nil
}

// UnitIDs returns every unit id in sorted order.
func (s *State) UnitIDs() []string {
	return append([]string(nil), s.ids...)
}

// Units returns every unit sorted by id.
func (s *State) Units() []*board.Unit {
	out := make([]*board.Unit, len(s.ids))
	for i, id := range s.ids {
		out[i] = s.units[id]
	}
	return out
}

// UnitAt returns the living unit on c.
func (s *State) UnitAt(c board.Coord) (*board.Unit, bool) {
	for _, id := range s.ids {
		if u := s.units[id]; u.Alive() && u.Pos == c {
			return u, true
		}
	}
	return nil, false
}

// SideAlive reports whether side still has a living unit.
func (s *State) SideAlive(side board.Side) bool {
	for _, id := range s.ids {
		if u := s.units[id]; u.Team == side && u.Alive() {
			return true
		}
	}
	return false
}

// Scheduler exposes the turn scheduler.
func (s *State) Scheduler() *rules.TurnScheduler { return s.scheduler }

// TurnIndex is the index of the open turn.
func (s *State) TurnIndex() int { return s.scheduler.TurnIndex() }

// CurrentUnit is the id of the unit whose turn is open.
func (s *State) CurrentUnit() string { return s.scheduler.CurrentUnit() }

// Objective returns the root of the objective tree.
func (s *State) Objective() objectives.Objective { return s.objective }

// Controller returns the command source.
func (s *State) Controller() Controller { return s.controller }

// SetController swaps the command source, e.g. to hand control to a replay.
func (s *State) SetController(c Controller) { s.controller = c }

// RNG is the only source of randomness a controller or rule may use.
func (s *State) RNG() *rng.Source { return s.rng }

// PlayerSide is the side objectives are evaluated for.
func (s *State) PlayerSide() board.Side { return s.playerSide }

// Tick is the number of ticks run so far.
func (s *State) Tick() int { return s.tick }

// IsOver reports whether the objective root has resolved.
func (s *State) IsOver() bool { return s.over }

// Outcome is OutcomeNone until the game is over.
func (s *State) Outcome() Outcome { return s.outcome }

// Reachable lists the tiles unitID could reach with budget movement points,
// treating tiles held by other living units as impassable.
func (s *State) Reachable(unitID string, budget int) ([]board.Coord, error) {
	u, err := s.LookupUnit(unitID)
	if err != nil {
		return nil, err
	}
	return rules.Reachable(s.grid, u.Pos, budget, rules.PathOptions{Passable: s.passableFor(u.ID)}), nil
}

// PathFor plans a route for unitID to goal around other living units.
func (s *State) PathFor(unitID string, goal board.Coord, maxCost int) ([]board.Coord, bool, error) {
	u, err := s.LookupUnit(unitID)
	if err != nil {
		return nil, false, err
	}
	path, ok := rules.AStar(s.grid, u.Pos, goal, maxCost, rules.PathOptions{Passable: s.passableFor(u.ID)})
	return path, ok, nil
}

func (s *State) passableFor(unitID string) func(board.Coord) bool {
	return func(c board.Coord) bool {
		other, ok := s.UnitAt(c)
		return !ok || other.ID == unitID
	}
}

func (s *State) finish(outcome Outcome) {
	s.over = true
	s.outcome = outcome
}
