package rules

import (
	"fmt"
	"strings"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/status"
)

// UnitLookup resolves unit ids for the scheduler.
type UnitLookup interface {
	Unit(id string) (*board.Unit, bool)
}

// TurnScheduler owns whose turn it is. Units act in a fixed roster order;
// sides follow from the units, so any number of sides is supported.
type TurnScheduler struct {
	roster      []string
	pos         int
	currentUnit string
	currentSide board.Side
	turnIndex   int
	round       int
	pendingEnd  bool
	started     bool
}

// NewTurnScheduler creates a scheduler over roster. The first living unit is
// reported as current, but its turn is only opened by Start. Every roster id
// must resolve through units.
func NewTurnScheduler(roster []string, units UnitLookup) (*TurnScheduler, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("turn roster is empty")
	}
	ids := make([]string, len(roster))
	seen := make(map[string]bool, len(roster))
	first := -1
	for i, raw := range roster {
		id := strings.TrimSpace(raw)
		ids[i] = id
		if seen[id] {
			return nil, fmt.Errorf("unit %q appears twice in turn roster", id)
		}
		seen[id] = true
		u, ok := units.Unit(id)
		if !ok {
			return nil, fmt.Errorf("turn roster references unknown unit %q", id)
		}
		if first < 0 && u.Alive() {
			first = i
		}
	}
	if first < 0 {
		first = 0
	}

	ts := &TurnScheduler{roster: ids, pos: first}
	u, _ := units.Unit(ts.roster[first])
	ts.currentUnit = u.ID
	ts.currentSide = u.Team
	return ts, nil
}

// CurrentUnit returns the unit whose turn is open.
func (ts *TurnScheduler) CurrentUnit() string { return ts.currentUnit }

// CurrentSide returns the side of the current unit.
func (ts *TurnScheduler) CurrentSide() board.Side { return ts.currentSide }

// TurnIndex counts the turns opened since the first one (which is 0).
func (ts *TurnScheduler) TurnIndex() int { return ts.turnIndex }

// Round counts full passes through the roster.
func (ts *TurnScheduler) Round() int { return ts.round }

// PendingEnd reports whether the current turn has been flagged to end.
func (ts *TurnScheduler) PendingEnd() bool { return ts.pendingEnd }

// Started reports whether the first turn has been opened.
func (ts *TurnScheduler) Started() bool { return ts.started }

// Roster returns a copy of the turn order.
func (ts *TurnScheduler) Roster() []string {
	return append([]string(nil), ts.roster...)
}

// FlagEndOfTurn marks the current turn to close on the next MaybeAdvance.
func (ts *TurnScheduler) FlagEndOfTurn() {
	ts.pendingEnd = true
}

// Start opens turn 0 the same way MaybeAdvance opens every later turn:
// stunned units at the head of the roster are skipped and the first unit
// able to act gets TURN_STARTED. Calls after the first return nil.
func (ts *TurnScheduler) Start(units UnitLookup) []Event {
	if ts.started {
		return nil
	}
	ts.started = true
	if !ts.anyAlive(units) {
		return nil
	}
	ts.pos = -1
	return ts.openNext(units, nil)
}

// MaybeAdvance closes the current turn if it was flagged and opens the next
// one. The closing TURN_ENDED is always emitted before any skip and before
// the TURN_STARTED of the new turn, and exactly once per advance.
//
// Dead units are passed over silently. A stunned unit loses one stun charge
// and emits TURN_SKIPPED instead of getting the turn. If no unit is alive the
// turn closes without a new one opening.
func (ts *TurnScheduler) MaybeAdvance(units UnitLookup) []Event {
	if !ts.pendingEnd {
		return nil
	}
	ts.pendingEnd = false
	ts.started = true

	events := []Event{{
		Type:      EventTurnEnded,
		Unit:      ts.currentUnit,
		Side:      ts.currentSide,
		TurnIndex: ts.turnIndex,
	}}

	if !ts.anyAlive(units) {
		return events
	}
	ts.turnIndex++
	return ts.openNext(units, events)
}

// openNext walks the roster from pos and opens the first living unit that is
// not stunned. The caller guarantees some unit is alive; stun charges are
// capped, so the walk ends after at most roster length times status.MaxTurns
// skips.
func (ts *TurnScheduler) openNext(units UnitLookup, events []Event) []Event {
	n := len(ts.roster)
	for {
		ts.pos++
		if ts.pos >= n {
			ts.pos = 0
			ts.round++
		}
		u, ok := units.Unit(ts.roster[ts.pos])
		if !ok || !u.Alive() {
			continue
		}
		if u.Statuses.Consume(status.KindStun) {
			events = append(events, Event{
				Type:   EventTurnSkipped,
				Unit:   u.ID,
				Side:   u.Team,
				Status: status.KindStun,
			})
			continue
		}
		ts.currentUnit = u.ID
		ts.currentSide = u.Team
		events = append(events, Event{
			Type:      EventTurnStarted,
			Unit:      u.ID,
			Side:      u.Team,
			TurnIndex: ts.turnIndex,
		})
		return events
	}
}

func (ts *TurnScheduler) anyAlive(units UnitLookup) bool {
	for _, id := range ts.roster {
		if u, ok := units.Unit(id); ok && u.Alive() {
			return true
		}
	}
	return false
}
