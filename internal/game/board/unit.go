package board

import (
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/status"
)

// Side identifies a team.
type Side string

// Stats is a unit's stat block.
type Stats struct {
	HP      int `json:"hp" yaml:"hp" mapstructure:"hp"`
	MaxHP   int `json:"max_hp,omitempty" yaml:"max_hp" mapstructure:"max_hp"`
	Attack  int `json:"attack" yaml:"attack" mapstructure:"attack"`
	Defense int `json:"defense" yaml:"defense" mapstructure:"defense"`
	Height  int `json:"height" yaml:"height" mapstructure:"height"`
}

// Unit is a combatant on the grid. Units are never removed from a game: a
// defeated unit stays addressable with HP == 0.
type Unit struct {
	ID       string
	Team     Side
	Pos      Coord
	Facing   Facing
	Stats    Stats
	Statuses status.Set
	// OnHit markers are applied to a target that survives this unit's attack.
	OnHit []status.Marker
}

// NewUnit creates a unit, defaulting MaxHP to HP.
func NewUnit(id string, team Side, pos Coord, stats Stats) *Unit {
	if stats.MaxHP < stats.HP {
		stats.MaxHP = stats.HP
	}
	return &Unit{
		ID:    id,
		Team:  team,
		Pos:   pos,
		Stats: stats,
	}
}

// Alive is derived from HP; there is no separate liveness flag.
func (u *Unit) Alive() bool {
	return u.Stats.HP > 0
}

// TakeDamage lowers HP by amount, never below zero, and returns the HP
// actually lost.
func (u *Unit) TakeDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := u.Stats.HP
	u.Stats.HP -= amount
	if u.Stats.HP < 0 {
		u.Stats.HP = 0
	}
	return before - u.Stats.HP
}

// Clone returns a deep copy of the unit.
func (u *Unit) Clone() *Unit {
	c := *u
	c.Statuses = u.Statuses.Copy()
	c.OnHit = append([]status.Marker(nil), u.OnHit...)
	return &c
}
