package game

import (
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/objectives"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/status"
)

// TileView is one grid cell as a renderer sees it.
type TileView struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Cost    int  `json:"cost"`
	Blocked bool `json:"blocked,omitempty"`
}

// UnitView is the drawable state of a unit.
type UnitView struct {
	ID       string          `json:"id"`
	Team     board.Side      `json:"team"`
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Facing   string          `json:"facing"`
	HP       int             `json:"hp"`
	MaxHP    int             `json:"max_hp"`
	Attack   int             `json:"attack"`
	Defense  int             `json:"defense"`
	Height   int             `json:"height"`
	Alive    bool            `json:"alive"`
	Statuses []status.Marker `json:"statuses,omitempty"`
}

// Snapshot is a read-only projection of the state for presentation layers.
// It shares no memory with the state it was taken from.
type Snapshot struct {
	Tick        int           `json:"tick"`
	TurnIndex   int           `json:"turn_index"`
	Round       int           `json:"round"`
	CurrentUnit string        `json:"current_unit"`
	CurrentSide board.Side    `json:"current_side"`
	Over        bool          `json:"over"`
	Outcome     Outcome       `json:"outcome,omitempty"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Tiles       []TileView    `json:"tiles"`
	Units       []UnitView    `json:"units"`
	Objectives  []string      `json:"objectives"`
	Reachable   []board.Coord `json:"reachable,omitempty"`
}

// Snapshot projects the current state. Tiles are listed row by row, units by
// id.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:        s.tick,
		TurnIndex:   s.scheduler.TurnIndex(),
		Round:       s.scheduler.Round(),
		CurrentUnit: s.scheduler.CurrentUnit(),
		CurrentSide: s.scheduler.CurrentSide(),
		Over:        s.over,
		Outcome:     s.outcome,
		Width:       s.grid.Width(),
		Height:      s.grid.Height(),
		Tiles:       make([]TileView, 0, s.grid.Width()*s.grid.Height()),
		Units:       make([]UnitView, 0, len(s.ids)),
		Objectives:  objectives.SummaryLines(s.objective, s),
	}

	for y := 0; y < s.grid.Height(); y++ {
		for x := 0; x < s.grid.Width(); x++ {
			t := s.grid.Tile(board.C(x, y))
			snap.Tiles = append(snap.Tiles, TileView{X: x, Y: y, Cost: t.Cost, Blocked: t.Blocked})
		}
	}

	for _, id := range s.ids {
		u := s.units[id]
		snap.Units = append(snap.Units, UnitView{
			ID:       u.ID,
			Team:     u.Team,
			X:        u.Pos.X,
			Y:        u.Pos.Y,
			Facing:   u.Facing.String(),
			HP:       u.Stats.HP,
			MaxHP:    u.Stats.MaxHP,
			Attack:   u.Stats.Attack,
			Defense:  u.Stats.Defense,
			Height:   u.Stats.Height,
			Alive:    u.Alive(),
			Statuses: u.Statuses.All(),
		})
	}
	return snap
}

// SnapshotWithReach adds the move range of unitID for the given budget.
func (s *State) SnapshotWithReach(unitID string, budget int) (Snapshot, error) {
	reach, err := s.Reachable(unitID, budget)
	if err != nil {
		return Snapshot{}, err
	}
	snap := s.Snapshot()
	snap.Reachable = reach
	return snap, nil
}
