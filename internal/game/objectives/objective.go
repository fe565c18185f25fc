// Package objectives tracks scenario victory and defeat conditions. Objectives
// consume the event stream and query game state; a Compound objective
// combines others into a tree.
package objectives

import (
	"fmt"
	"strings"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rules"
)

// Kind identifies an objective variant. It doubles as the configuration tag.
type Kind string

const (
	KindEliminateBoss Kind = "eliminate_boss"
	KindSurviveTurns  Kind = "survive_turns"
	KindHoldZones     Kind = "hold_zones"
	KindEscort        Kind = "escort"
	KindCompound      Kind = "compound"
)

// StateView is the read-only slice of game state objectives may query.
type StateView interface {
	TurnIndex() int
	PlayerSide() board.Side
	// SideAlive reports whether side has at least one living unit.
	SideAlive(side board.Side) bool
	// UnitAt returns the living unit standing on c.
	UnitAt(c board.Coord) (*board.Unit, bool)
}

// Objective is implemented only by the variants in this package.
type Objective interface {
	Kind() Kind
	UpdateFromEvents(events []rules.Event, view StateView)
	IsComplete(view StateView) bool
	IsFailed(view StateView) bool
	Summary(view StateView) string

	sealed()
}

type outcome int

const (
	outcomePending outcome = iota
	outcomeComplete
	outcomeFailed
)

// latch records the first terminal outcome of an objective and ignores
// anything after it, which keeps completion and failure monotonic.
type latch struct {
	result outcome
}

func (l *latch) complete() {
	if l.result == outcomePending {
		l.result = outcomeComplete
	}
}

func (l *latch) fail() {
	if l.result == outcomePending {
		l.result = outcomeFailed
	}
}

func (l *latch) pending() bool { return l.result == outcomePending }

func (latch) sealed() {}

func statusTag(o Objective, view StateView) string {
	switch {
	case o.IsComplete(view):
		return "[done]"
	case o.IsFailed(view):
		return "[failed]"
	default:
		return "[ ]"
	}
}

// SummaryLines renders the objective tree one line per node, children
// indented under their Compound parent.
func SummaryLines(root Objective, view StateView) []string {
	var lines []string
	Walk(root, func(depth int, o Objective) {
		lines = append(lines, strings.Repeat("  ", depth)+o.Summary(view))
	})
	return lines
}

// Walk visits root and its descendants depth first, parents before children.
func Walk(root Objective, fn func(depth int, o Objective)) {
	walk(root, 0, fn)
}

func walk(o Objective, depth int, fn func(int, Objective)) {
	if o == nil {
		return
	}
	fn(depth, o)
	if c, ok := o.(*Compound); ok {
		for _, child := range c.children {
			walk(child, depth+1, fn)
		}
	}
}

// EliminateBoss completes once the boss unit is killed.
type EliminateBoss struct {
	latch
	boss string
}

// NewEliminateBoss creates an objective to kill boss.
func NewEliminateBoss(boss string) *EliminateBoss {
	return &EliminateBoss{boss: boss}
}

func (o *EliminateBoss) Kind() Kind { return KindEliminateBoss }

func (o *EliminateBoss) UpdateFromEvents(events []rules.Event, _ StateView) {
	for _, e := range events {
		if e.Type == rules.EventUnitKilled && e.Unit == o.boss {
			o.complete()
		}
	}
}

func (o *EliminateBoss) IsComplete(StateView) bool { return o.result == outcomeComplete }

func (o *EliminateBoss) IsFailed(StateView) bool { return false }

func (o *EliminateBoss) Summary(view StateView) string {
	return fmt.Sprintf("%s Eliminate %s", statusTag(o, view), o.boss)
}

// SurviveNTurns completes once the turn index reaches n and fails if the
// player side is wiped out first. Both conditions are read from state.
type SurviveNTurns struct {
	latch
	turns int
}

// NewSurviveNTurns creates an objective to last n turns.
func NewSurviveNTurns(n int) *SurviveNTurns {
	return &SurviveNTurns{turns: n}
}

func (o *SurviveNTurns) Kind() Kind { return KindSurviveTurns }

func (o *SurviveNTurns) UpdateFromEvents(_ []rules.Event, view StateView) {
	if !o.pending() {
		return
	}
	if !view.SideAlive(view.PlayerSide()) {
		o.fail()
		return
	}
	if view.TurnIndex() >= o.turns {
		o.complete()
	}
}

func (o *SurviveNTurns) IsComplete(view StateView) bool {
	if !o.pending() {
		return o.result == outcomeComplete
	}
	return view.SideAlive(view.PlayerSide()) && view.TurnIndex() >= o.turns
}

func (o *SurviveNTurns) IsFailed(view StateView) bool {
	if !o.pending() {
		return o.result == outcomeFailed
	}
	return !view.SideAlive(view.PlayerSide())
}

func (o *SurviveNTurns) Summary(view StateView) string {
	turn := view.TurnIndex()
	if turn > o.turns {
		turn = o.turns
	}
	return fmt.Sprintf("%s Survive %d turns (%d/%d)", statusTag(o, view), o.turns, turn, o.turns)
}

// HoldZones counts consecutive player turns that end with at least required
// zones occupied by living player units. It never fails: losing the zones
// only resets the streak.
type HoldZones struct {
	latch
	zones    []board.Coord
	required int
	turns    int
	streak   int
}

// NewHoldZones creates an objective to hold required of zones for turns
// consecutive player turn ends.
func NewHoldZones(zones []board.Coord, required, turns int) *HoldZones {
	return &HoldZones{
		zones:    append([]board.Coord(nil), zones...),
		required: required,
		turns:    turns,
	}
}

func (o *HoldZones) Kind() Kind { return KindHoldZones }

// Streak returns the current number of consecutive held turn ends.
func (o *HoldZones) Streak() int { return o.streak }

func (o *HoldZones) UpdateFromEvents(events []rules.Event, view StateView) {
	player := view.PlayerSide()
	for _, e := range events {
		if !o.pending() {
			return
		}
		if e.Type != rules.EventTurnEnded || e.Side != player {
			continue
		}
		if o.held(view) >= o.required {
			o.streak++
		} else {
			o.streak = 0
		}
		if o.streak >= o.turns {
			o.complete()
		}
	}
}

func (o *HoldZones) held(view StateView) int {
	player := view.PlayerSide()
	n := 0
	for _, z := range o.zones {
		if u, ok := view.UnitAt(z); ok && u.Team == player {
			n++
		}
	}
	return n
}

func (o *HoldZones) IsComplete(StateView) bool { return o.result == outcomeComplete }

func (o *HoldZones) IsFailed(StateView) bool { return false }

func (o *HoldZones) Summary(view StateView) string {
	return fmt.Sprintf("%s Hold %d of %d zones for %d turns (held %d, streak %d)",
		statusTag(o, view), o.required, len(o.zones), o.turns, o.held(view), o.streak)
}

// Escort completes when the escorted unit steps onto goal and fails if it is
// killed first.
type Escort struct {
	latch
	unit string
	goal board.Coord
}

// NewEscort creates an objective to bring unit to goal alive.
func NewEscort(unit string, goal board.Coord) *Escort {
	return &Escort{unit: unit, goal: goal}
}

func (o *Escort) Kind() Kind { return KindEscort }

func (o *Escort) UpdateFromEvents(events []rules.Event, _ StateView) {
	for _, e := range events {
		if e.Unit != o.unit {
			continue
		}
		switch e.Type {
		case rules.EventUnitMoved:
			if e.To == o.goal {
				o.complete()
			}
		case rules.EventUnitKilled:
			o.fail()
		}
	}
}

func (o *Escort) IsComplete(StateView) bool { return o.result == outcomeComplete }

func (o *Escort) IsFailed(StateView) bool { return o.result == outcomeFailed }

func (o *Escort) Summary(view StateView) string {
	return fmt.Sprintf("%s Escort %s to %s", statusTag(o, view), o.unit, o.goal)
}

// Compound requires every child. It fails as soon as any child fails and,
// once failed, can never complete.
type Compound struct {
	latch
	children []Objective
}

// NewCompound combines children into one objective.
func NewCompound(children ...Objective) *Compound {
	return &Compound{children: append([]Objective(nil), children...)}
}

func (o *Compound) Kind() Kind { return KindCompound }

// Children returns the child objectives in order.
func (o *Compound) Children() []Objective {
	return append([]Objective(nil), o.children...)
}

func (o *Compound) UpdateFromEvents(events []rules.Event, view StateView) {
	for _, c := range o.children {
		c.UpdateFromEvents(events, view)
	}
	if !o.pending() {
		return
	}
	if o.anyFailed(view) {
		o.fail()
		return
	}
	if o.allComplete(view) {
		o.complete()
	}
}

func (o *Compound) anyFailed(view StateView) bool {
	for _, c := range o.children {
		if c.IsFailed(view) {
			return true
		}
	}
	return false
}

func (o *Compound) allComplete(view StateView) bool {
	for _, c := range o.children {
		if !c.IsComplete(view) {
			return false
		}
	}
	return true
}

func (o *Compound) IsFailed(view StateView) bool {
	if !o.pending() {
		return o.result == outcomeFailed
	}
	return o.anyFailed(view)
}

func (o *Compound) IsComplete(view StateView) bool {
	if !o.pending() {
		return o.result == outcomeComplete
	}
	return !o.anyFailed(view) && o.allComplete(view)
}

func (o *Compound) Summary(view StateView) string {
	done := 0
	for _, c := range o.children {
		if c.IsComplete(view) {
			done++
		}
	}
	return fmt.Sprintf("%s All of (%d/%d)", statusTag(o, view), done, len(o.children))
}
