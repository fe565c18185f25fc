package game

import (
	"fmt"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rules"
)

// CommandType names a command variant on the wire and in replay logs.
type CommandType string

const (
	CommandMove    CommandType = "move"
	CommandAttack  CommandType = "attack"
	CommandEndTurn CommandType = "end_turn"
)

// Command is an intent issued by a controller. Validate must be called before
// Apply; Apply assumes a valid command and only fails on programmer error.
// Commands are values and are never mutated.
type Command interface {
	Type() CommandType
	Validate(s *State) bool
	Apply(s *State) ([]rules.Event, error)

	command()
}

// Move relocates a unit to Destination.
type Move struct {
	Unit        string
	Destination board.Coord
}

func (Move) Type() CommandType { return CommandMove }

// Validate requires a living unit and an open, in-bounds, unoccupied
// destination. Path cost is left to the controller.
func (m Move) Validate(s *State) bool {
	u, ok := s.Unit(m.Unit)
	if !ok || !u.Alive() {
		return false
	}
	if !s.grid.InBounds(m.Destination) || s.grid.Blocked(m.Destination) {
		return false
	}
	if other, taken := s.UnitAt(m.Destination); taken && other.ID != u.ID {
		return false
	}
	return true
}

func (m Move) Apply(s *State) ([]rules.Event, error) {
	u, err := s.LookupUnit(m.Unit)
	if err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}
	from := u.Pos
	u.Facing = board.FacingToward(from, m.Destination, u.Facing)
	u.Pos = m.Destination
	return []rules.Event{{
		Type: rules.EventUnitMoved,
		Unit: u.ID,
		Side: u.Team,
		From: from,
		To:   m.Destination,
	}}, nil
}

func (Move) command() {}

func (m Move) String() string {
	return fmt.Sprintf("Move(%s -> %s)", m.Unit, m.Destination)
}

// Attack has Attacker strike Target.
type Attack struct {
	Attacker string
	Target   string
}

func (Attack) Type() CommandType { return CommandAttack }

func (a Attack) Validate(s *State) bool {
	if a.Attacker == a.Target {
		return false
	}
	attacker, ok := s.Unit(a.Attacker)
	if !ok || !attacker.Alive() {
		return false
	}
	target, ok := s.Unit(a.Target)
	return ok && target.Alive()
}

// Apply emits UNIT_ATTACKED, then UNIT_KILLED if the target dropped to 0 HP.
// A surviving target receives the attacker's on-hit markers.
func (a Attack) Apply(s *State) ([]rules.Event, error) {
	attacker, err := s.LookupUnit(a.Attacker)
	if err != nil {
		return nil, fmt.Errorf("attack: %w", err)
	}
	target, err := s.LookupUnit(a.Target)
	if err != nil {
		return nil, fmt.Errorf("attack: %w", err)
	}

	attacker.Facing = board.FacingToward(attacker.Pos, target.Pos, attacker.Facing)
	res := rules.ApplyAttack(attacker, target)

	events := []rules.Event{{
		Type:   rules.EventUnitAttacked,
		Unit:   attacker.ID,
		Other:  target.ID,
		Side:   attacker.Team,
		Amount: res.Amount,
	}}
	if res.Killed {
		return append(events, rules.Event{
			Type:  rules.EventUnitKilled,
			Unit:  target.ID,
			Other: attacker.ID,
			Side:  target.Team,
		}), nil
	}
	for _, m := range attacker.OnHit {
		events = append(events, rules.ApplyStatus(target, m, attacker.ID)...)
	}
	return events, nil
}

func (Attack) command() {}

func (a Attack) String() string {
	return fmt.Sprintf("Attack(%s -> %s)", a.Attacker, a.Target)
}

// EndTurn closes the turn of Unit, which must be the unit whose turn is open.
type EndTurn struct {
	Unit string
}

func (EndTurn) Type() CommandType { return CommandEndTurn }

func (e EndTurn) Validate(s *State) bool {
	return e.Unit != "" && s.scheduler.CurrentUnit() == e.Unit
}

func (e EndTurn) Apply(s *State) ([]rules.Event, error) {
	u, err := s.LookupUnit(e.Unit)
	if err != nil {
		return nil, fmt.Errorf("end turn: %w", err)
	}
	s.scheduler.FlagEndOfTurn()
	return []rules.Event{{
		Type:      rules.EventTurnEndRequested,
		Unit:      u.ID,
		Side:      u.Team,
		TurnIndex: s.scheduler.TurnIndex(),
	}}, nil
}

func (EndTurn) command() {}

func (e EndTurn) String() string {
	return fmt.Sprintf("EndTurn(%s)", e.Unit)
}

// CommandRecord is the serialisable form of a command, tagged with the tick
// it was issued on.
type CommandRecord struct {
	Tick        int         `json:"tick" yaml:"tick" mapstructure:"tick"`
	Type        CommandType `json:"type" yaml:"type" mapstructure:"type"`
	Unit        string      `json:"unit,omitempty" yaml:"unit,omitempty" mapstructure:"unit"`
	Target      string      `json:"target,omitempty" yaml:"target,omitempty" mapstructure:"target"`
	Destination board.Coord `json:"destination" yaml:"destination" mapstructure:"destination"`
}

// RecordCommand encodes cmd as issued on tick.
func RecordCommand(tick int, cmd Command) (CommandRecord, error) {
	switch c := cmd.(type) {
	case Move:
		return CommandRecord{Tick: tick, Type: CommandMove, Unit: c.Unit, Destination: c.Destination}, nil
	case Attack:
		return CommandRecord{Tick: tick, Type: CommandAttack, Unit: c.Attacker, Target: c.Target}, nil
	case EndTurn:
		return CommandRecord{Tick: tick, Type: CommandEndTurn, Unit: c.Unit}, nil
	default:
		return CommandRecord{}, fmt.Errorf("cannot record command %T", cmd)
	}
}

// Command decodes the record back into a command value.
func (r CommandRecord) Command() (Command, error) {
	switch r.Type {
	case CommandMove:
		return Move{Unit: r.Unit, Destination: r.Destination}, nil
	case CommandAttack:
		return Attack{Attacker: r.Unit, Target: r.Target}, nil
	case CommandEndTurn:
		return EndTurn{Unit: r.Unit}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q at tick %d", r.Type, r.Tick)
	}
}
