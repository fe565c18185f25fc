package rules

import (
	"testing"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/status"
)

type unitTable map[string]*board.Unit

func (ut unitTable) Unit(id string) (*board.Unit, bool) {
	u, ok := ut[id]
	return u, ok
}

func newTable(units ...*board.Unit) unitTable {
	ut := make(unitTable, len(units))
	for _, u := range units {
		ut[u.ID] = u
	}
	return ut
}

func sidedUnit(id string, side board.Side, hp int) *board.Unit {
	return board.NewUnit(id, side, board.C(0, 0), board.Stats{HP: hp})
}

func TestTurnSchedulerRoundRobin(t *testing.T) {
	units := newTable(sidedUnit("a", "player", 5), sidedUnit("b", "enemy", 5), sidedUnit("c", "neutral", 5))
	ts, err := NewTurnScheduler([]string{"a", "b", "c"}, units)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ts.CurrentUnit() != "a" || ts.CurrentSide() != "player" || ts.TurnIndex() != 0 {
		t.Fatalf("expected turn 0 for a/player, got %d for %s/%s", ts.TurnIndex(), ts.CurrentUnit(), ts.CurrentSide())
	}

	want := []string{"b", "c", "a", "b"}
	for i, id := range want {
		ts.FlagEndOfTurn()
		events := ts.MaybeAdvance(units)
		if len(events) != 2 {
			t.Fatalf("advance %d: expected 2 events, got %d", i, len(events))
		}
		if events[0].Type != EventTurnEnded || events[1].Type != EventTurnStarted {
			t.Fatalf("advance %d: expected TURN_ENDED then TURN_STARTED, got %s then %s", i, events[0].Type, events[1].Type)
		}
		if events[0].TurnIndex != i || events[1].TurnIndex != i+1 {
			t.Fatalf("advance %d: unexpected turn indices %d -> %d", i, events[0].TurnIndex, events[1].TurnIndex)
		}
		if ts.CurrentUnit() != id {
			t.Fatalf("advance %d: expected %s, got %s", i, id, ts.CurrentUnit())
		}
	}
	if ts.Round() != 1 {
		t.Fatalf("expected round 1, got %d", ts.Round())
	}
}

func TestTurnSchedulerNoPendingEnd(t *testing.T) {
	units := newTable(sidedUnit("a", "player", 5), sidedUnit("b", "enemy", 5))
	ts, _ := NewTurnScheduler([]string{"a", "b"}, units)

	if events := ts.MaybeAdvance(units); events != nil {
		t.Fatalf("expected no events without pending end, got %v", events)
	}
	if ts.CurrentUnit() != "a" {
		t.Fatalf("expected a to keep the turn, got %s", ts.CurrentUnit())
	}
}

func TestTurnSchedulerSkipsDeadUnits(t *testing.T) {
	dead := sidedUnit("b", "enemy", 0)
	units := newTable(sidedUnit("a", "player", 5), dead, sidedUnit("c", "enemy", 5))
	ts, _ := NewTurnScheduler([]string{"a", "b", "c"}, units)

	ts.FlagEndOfTurn()
	events := ts.MaybeAdvance(units)
	if ts.CurrentUnit() != "c" {
		t.Fatalf("expected c after skipping dead b, got %s", ts.CurrentUnit())
	}
	if len(events) != 2 {
		t.Fatalf("dead units are skipped silently, got %v", events)
	}
}

func TestTurnSchedulerStunSkipsTurn(t *testing.T) {
	stunned := sidedUnit("b", "enemy", 5)
	stunned.Statuses.Add(status.NewMarker(status.KindStun, 0, 1))
	units := newTable(sidedUnit("a", "player", 5), stunned)
	ts, _ := NewTurnScheduler([]string{"a", "b"}, units)

	ts.FlagEndOfTurn()
	events := ts.MaybeAdvance(units)

	got := eventTypes(events)
	want := []EventType{EventTurnEnded, EventTurnSkipped, EventTurnStarted}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if ts.CurrentUnit() != "a" {
		t.Fatalf("expected a to act again, got %s", ts.CurrentUnit())
	}
	if stunned.Statuses.Has(status.KindStun) {
		t.Fatal("stun charge should be consumed by the skip")
	}

	ts.FlagEndOfTurn()
	ts.MaybeAdvance(units)
	if ts.CurrentUnit() != "b" {
		t.Fatalf("expected b to act once the stun wore off, got %s", ts.CurrentUnit())
	}
}

func TestTurnSchedulerAllDead(t *testing.T) {
	a := sidedUnit("a", "player", 5)
	units := newTable(a, sidedUnit("b", "enemy", 0))
	ts, _ := NewTurnScheduler([]string{"a", "b"}, units)
	a.Stats.HP = 0

	ts.FlagEndOfTurn()
	events := ts.MaybeAdvance(units)
	if len(events) != 1 || events[0].Type != EventTurnEnded {
		t.Fatalf("expected a lone TURN_ENDED, got %v", events)
	}
	if ts.CurrentUnit() != "a" {
		t.Fatalf("current unit must still resolve, got %s", ts.CurrentUnit())
	}
	if ts.PendingEnd() {
		t.Fatal("pending flag should be cleared")
	}
}

func TestNewTurnSchedulerValidation(t *testing.T) {
	units := newTable(sidedUnit("a", "player", 5), sidedUnit("b", "enemy", 5))

	if _, err := NewTurnScheduler(nil, units); err == nil {
		t.Fatal("expected error for empty roster")
	}
	if _, err := NewTurnScheduler([]string{"a", "a"}, units); err == nil {
		t.Fatal("expected error for duplicate roster entry")
	}
	if _, err := NewTurnScheduler([]string{"a", "ghost"}, units); err == nil {
		t.Fatal("expected error for unknown unit")
	}

	units["a"].Stats.HP = 0
	ts, err := NewTurnScheduler([]string{"a", "b"}, units)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.CurrentUnit() != "b" {
		t.Fatalf("first turn goes to the first living unit, got %s", ts.CurrentUnit())
	}
}

func TestTurnSchedulerStartSkipsStunnedHead(t *testing.T) {
	stunned := sidedUnit("a", "player", 5)
	stunned.Statuses.Add(status.NewMarker(status.KindStun, 0, 1))
	units := newTable(stunned, sidedUnit("b", "enemy", 5))
	ts, _ := NewTurnScheduler([]string{"a", "b"}, units)

	if ts.Started() {
		t.Fatal("scheduler must not start before Start")
	}
	events := ts.Start(units)
	got := eventTypes(events)
	if len(got) != 2 || got[0] != EventTurnSkipped || got[1] != EventTurnStarted {
		t.Fatalf("expected TURN_SKIPPED then TURN_STARTED, got %v", got)
	}
	if events[0].Unit != "a" || events[1].Unit != "b" || events[1].TurnIndex != 0 {
		t.Fatalf("expected a skipped and turn 0 for b, got %v", events)
	}
	if ts.CurrentUnit() != "b" || ts.Round() != 0 {
		t.Fatalf("expected b in round 0, got %s in round %d", ts.CurrentUnit(), ts.Round())
	}
	if stunned.Statuses.Has(status.KindStun) {
		t.Fatal("stun charge should be consumed by the opening skip")
	}
	if again := ts.Start(units); again != nil {
		t.Fatalf("second Start should be a no-op, got %v", again)
	}

	ts.FlagEndOfTurn()
	ts.MaybeAdvance(units)
	if ts.CurrentUnit() != "a" || ts.TurnIndex() != 1 || ts.Round() != 1 {
		t.Fatalf("expected turn 1 for a in round 1, got turn %d for %s in round %d", ts.TurnIndex(), ts.CurrentUnit(), ts.Round())
	}
}

func TestTurnSchedulerStartWithNobodyAlive(t *testing.T) {
	units := newTable(sidedUnit("a", "player", 0))
	ts, _ := NewTurnScheduler([]string{"a"}, units)

	if events := ts.Start(units); events != nil {
		t.Fatalf("expected no events, got %v", events)
	}
	if !ts.Started() {
		t.Fatal("Start should still mark the scheduler started")
	}
}

func TestTurnSchedulerAllStunnedTerminates(t *testing.T) {
	a := sidedUnit("a", "player", 5)
	b := sidedUnit("b", "enemy", 5)
	a.Statuses.Add(status.Marker{Kind: status.KindStun, Turns: 2_000_000_000})
	b.Statuses.Add(status.Marker{Kind: status.KindStun, Turns: 2_000_000_000})
	units := newTable(a, b)
	ts, _ := NewTurnScheduler([]string{"a", "b"}, units)

	events := ts.Start(units)
	if len(events) != 2*status.MaxTurns+1 {
		t.Fatalf("expected %d skips and a start, got %d events", 2*status.MaxTurns, len(events))
	}
	if last := events[len(events)-1]; last.Type != EventTurnStarted || last.Unit != "a" {
		t.Fatalf("expected a to open once its charges ran out, got %v", last)
	}
	if b.Statuses.Has(status.KindStun) {
		t.Fatal("b should have spent every charge")
	}
}
