package rules

import (
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
)

// Height advantage is clamped so no single elevation gap dominates a fight.
const (
	MinHeightBonus = -2
	MaxHeightBonus = 2
)

// AttackResult describes one resolved attack.
type AttackResult struct {
	Amount      int // total damage dealt by the formula
	Base        int
	HeightBonus int
	FacingBonus int
	Killed      bool
}

// DamageBreakdown computes the damage attacker would deal to target without
// mutating either unit.
func DamageBreakdown(attacker, target *board.Unit) AttackResult {
	base := attacker.Stats.Attack - target.Stats.Defense
	if base < 0 {
		base = 0
	}
	height := HeightBonus(attacker.Stats.Height, target.Stats.Height)
	facing := FacingBonus(attacker.Pos, target.Pos)

	total := base + height + facing
	if total < 0 {
		total = 0
	}
	return AttackResult{
		Amount:      total,
		Base:        base,
		HeightBonus: height,
		FacingBonus: facing,
	}
}

// ApplyAttack resolves an attack and lowers the target's HP, never below 0.
func ApplyAttack(attacker, target *board.Unit) AttackResult {
	res := DamageBreakdown(attacker, target)
	target.TakeDamage(res.Amount)
	res.Killed = target.Stats.HP == 0
	return res
}

// HeightBonus is the attacker's elevation advantage clamped to [-2, +2].
func HeightBonus(attackerHeight, targetHeight int) int {
	d := attackerHeight - targetHeight
	if d < MinHeightBonus {
		return MinHeightBonus
	}
	if d > MaxHeightBonus {
		return MaxHeightBonus
	}
	return d
}

// FacingBonus treats an adjacent strike as frontal (0) and anything at range
// as a flank (+1). This is a placeholder until real facing geometry exists.
func FacingBonus(attacker, target board.Coord) int {
	if board.Manhattan(attacker, target) <= 1 {
		return 0
	}
	return 1
}
