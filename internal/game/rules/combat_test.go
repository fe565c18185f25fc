package rules

import (
	"testing"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFighter(id string, pos board.Coord, hp, atk, def, height int) *board.Unit {
	return board.NewUnit(id, "blue", pos, board.Stats{HP: hp, Attack: atk, Defense: def, Height: height})
}

func TestApplyAttackReferenceScenario(t *testing.T) {
	attacker := newFighter("attacker", board.C(3, 3), 20, 8, 3, 1)
	target := newFighter("target", board.C(3, 4), 15, 6, 2, 0)

	res := ApplyAttack(attacker, target)

	assert.Equal(t, 6, res.Base)
	assert.Equal(t, 1, res.HeightBonus)
	assert.Equal(t, 0, res.FacingBonus)
	assert.Equal(t, 7, res.Amount)
	assert.Equal(t, 8, target.Stats.HP)
	assert.False(t, res.Killed)
	assert.Equal(t, 20, attacker.Stats.HP, "attacker is untouched")
}

func TestApplyAttackAtRangeAddsFlankBonus(t *testing.T) {
	attacker := newFighter("a", board.C(0, 0), 10, 5, 0, 0)
	target := newFighter("t", board.C(0, 2), 10, 0, 5, 0)

	res := ApplyAttack(attacker, target)

	assert.Equal(t, 0, res.Base)
	assert.Equal(t, 1, res.FacingBonus)
	assert.Equal(t, 1, res.Amount)
	assert.Equal(t, 9, target.Stats.HP)
}

func TestApplyAttackKills(t *testing.T) {
	attacker := newFighter("a", board.C(0, 0), 10, 30, 0, 0)
	target := newFighter("t", board.C(1, 0), 4, 0, 0, 0)

	res := ApplyAttack(attacker, target)

	assert.True(t, res.Killed)
	assert.Equal(t, 0, target.Stats.HP)
}

func TestApplyAttackNeverNegative(t *testing.T) {
	attacker := newFighter("a", board.C(0, 0), 10, 1, 0, 0)
	target := newFighter("t", board.C(1, 0), 10, 0, 9, 5)

	res := ApplyAttack(attacker, target)

	assert.Equal(t, 0, res.Amount)
	assert.Equal(t, -2, res.HeightBonus)
	assert.Equal(t, 10, target.Stats.HP)
	assert.False(t, res.Killed)
}

func TestHeightBonusClamp(t *testing.T) {
	tests := []struct {
		attacker, target, want int
	}{
		{0, 0, 0},
		{1, 0, 1},
		{2, 0, 2},
		{3, 0, 2},
		{0, 2, -2},
		{-5, 7, -2},
		{1 << 20, -(1 << 20), 2},
		{-(1 << 20), 1 << 20, -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HeightBonus(tt.attacker, tt.target), "%d vs %d", tt.attacker, tt.target)
	}
}

func TestCombatProperties(t *testing.T) {
	// Sweep a grid of stat blocks and check the combat invariants for each.
	for atk := 0; atk <= 12; atk += 3 {
		for def := 0; def <= 12; def += 4 {
			for dh := -4; dh <= 4; dh++ {
				for dist := 1; dist <= 3; dist++ {
					for hp := 0; hp <= 15; hp += 5 {
						attacker := newFighter("a", board.C(0, 0), 10, atk, 0, dh)
						target := newFighter("t", board.C(dist, 0), hp, 0, def, 0)
						before := target.Stats.HP

						res := ApplyAttack(attacker, target)

						require.GreaterOrEqual(t, res.Amount, 0)
						require.GreaterOrEqual(t, target.Stats.HP, 0)
						require.LessOrEqual(t, target.Stats.HP, before)
						require.Equal(t, target.Stats.HP == 0, res.Killed)
						require.GreaterOrEqual(t, res.HeightBonus, MinHeightBonus)
						require.LessOrEqual(t, res.HeightBonus, MaxHeightBonus)
					}
				}
			}
		}
	}
}
