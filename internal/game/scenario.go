package game

import (
	"fmt"
	"strings"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/objectives"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rng"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/status"
)

// TileSpec overrides one tile of the default open grid.
type TileSpec struct {
	Pos     board.Coord `json:"pos" yaml:"pos" mapstructure:"pos"`
	Cost    int         `json:"cost,omitempty" yaml:"cost,omitempty" mapstructure:"cost"`
	Blocked bool        `json:"blocked,omitempty" yaml:"blocked,omitempty" mapstructure:"blocked"`
}

// UnitSpec describes a unit at scenario start.
type UnitSpec struct {
	ID       string          `json:"id" yaml:"id" mapstructure:"id"`
	Team     board.Side      `json:"team" yaml:"team" mapstructure:"team"`
	Pos      board.Coord     `json:"pos" yaml:"pos" mapstructure:"pos"`
	Facing   string          `json:"facing,omitempty" yaml:"facing,omitempty" mapstructure:"facing"`
	Stats    board.Stats     `json:"stats" yaml:"stats" mapstructure:"stats"`
	Statuses []status.Marker `json:"statuses,omitempty" yaml:"statuses,omitempty" mapstructure:"statuses"`
	OnHit    []status.Marker `json:"on_hit,omitempty" yaml:"on_hit,omitempty" mapstructure:"on_hit"`
}

// Scenario is the declarative setup of a match.
type Scenario struct {
	Name       string     `json:"name" yaml:"name" mapstructure:"name"`
	Seed       uint64     `json:"seed" yaml:"seed" mapstructure:"seed"`
	Width      int        `json:"width" yaml:"width" mapstructure:"width"`
	Height     int        `json:"height" yaml:"height" mapstructure:"height"`
	Tiles      []TileSpec `json:"tiles,omitempty" yaml:"tiles,omitempty" mapstructure:"tiles"`
	Units      []UnitSpec `json:"units" yaml:"units" mapstructure:"units"`
	Roster     []string   `json:"roster,omitempty" yaml:"roster,omitempty" mapstructure:"roster"`
	PlayerSide board.Side `json:"player_side" yaml:"player_side" mapstructure:"player_side"`
	// ShuffleInitiative randomises the roster with the scenario's RNG.
	ShuffleInitiative bool              `json:"shuffle_initiative,omitempty" yaml:"shuffle_initiative,omitempty" mapstructure:"shuffle_initiative"`
	Objective         objectives.Config `json:"objective" yaml:"objective" mapstructure:"objective"`
}

// Build creates a fresh state for the scenario driven by controller. Every
// configuration problem is reported here; nothing fails later in the match.
func (sc Scenario) Build(controller Controller) (*State, error) {
	grid, err := board.NewGrid(sc.Width, sc.Height)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	for _, t := range sc.Tiles {
		if t.Cost > 0 {
			if err := grid.SetCost(t.Pos, t.Cost); err != nil {
				return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
		}
		if t.Blocked {
			if err := grid.SetBlocked(t.Pos, true); err != nil {
				return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
		}
	}

	units := make([]*board.Unit, 0, len(sc.Units))
	for _, spec := range sc.Units {
		u, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		units = append(units, u)
	}

	source := rng.New(sc.Seed)
	roster := append([]string(nil), sc.Roster...)
	if len(roster) == 0 {
		for _, u := range units {
			roster = append(roster, u.ID)
		}
	}
	if sc.ShuffleInitiative {
		source.Shuffle(len(roster), func(i, j int) { roster[i], roster[j] = roster[j], roster[i] })
	}

	root, err := objectives.Build(sc.Objective)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	s, err := NewState(StateOptions{
		Grid:       grid,
		Units:      units,
		Roster:     roster,
		Objective:  root,
		Controller: controller,
		RNG:        source,
		PlayerSide: sc.PlayerSide,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return s, nil
}

func (spec UnitSpec) build() (*board.Unit, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return nil, fmt.Errorf("unit with empty id")
	}
	if spec.Team == "" {
		return nil, fmt.Errorf("unit %q has no team", id)
	}
	if spec.Stats.HP < 0 {
		return nil, fmt.Errorf("unit %q has negative hp", id)
	}
	facing, err := board.ParseFacing(spec.Facing)
	if err != nil {
		return nil, fmt.Errorf("unit %q: %w", id, err)
	}

	u := board.NewUnit(id, spec.Team, spec.Pos, spec.Stats)
	u.Facing = facing
	for _, m := range spec.Statuses {
		if err := validateMarker(m); err != nil {
			return nil, fmt.Errorf("unit %q: %w", id, err)
		}
		u.Statuses.Add(m)
	}
	for _, m := range spec.OnHit {
		if err := validateMarker(m); err != nil {
			return nil, fmt.Errorf("unit %q on-hit: %w", id, err)
		}
		u.OnHit = append(u.OnHit, m)
	}
	return u, nil
}

func validateMarker(m status.Marker) error {
	if _, err := status.ParseKind(string(m.Kind)); err != nil {
		return err
	}
	if m.Turns > status.MaxTurns {
		return fmt.Errorf("%s lasts %d turns, at most %d allowed", m.Kind, m.Turns, status.MaxTurns)
	}
	return nil
}

// DuelScenario is the reference one-on-one match: seed 1337, an elevated
// attacker standing west of its target, win by killing the target.
func DuelScenario() Scenario {
	return Scenario{
		Name:       "duel",
		Seed:       1337,
		Width:      8,
		Height:     8,
		PlayerSide: "player",
		Units: []UnitSpec{
			{
				ID:    "attacker",
				Team:  "player",
				Pos:   board.C(2, 4),
				Stats: board.Stats{HP: 20, Attack: 8, Defense: 3, Height: 1},
			},
			{
				ID:    "target",
				Team:  "enemy",
				Pos:   board.C(3, 4),
				Stats: board.Stats{HP: 15, Attack: 6, Defense: 2, Height: 0},
			},
		},
		Roster:    []string{"attacker", "target"},
		Objective: objectives.Config{Type: objectives.KindEliminateBoss, Boss: "target"},
	}
}

// DuelScript is the reference command log for DuelScenario: step in, pass,
// strike once, pass.
func DuelScript() []Command {
	return []Command{
		Move{Unit: "attacker", Destination: board.C(3, 3)},
		EndTurn{Unit: "attacker"},
		Attack{Attacker: "attacker", Target: "target"},
		EndTurn{Unit: "target"},
	}
}
