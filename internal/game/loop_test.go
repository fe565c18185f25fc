package game

import (
	"errors"
	"testing"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/objectives"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rules"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func runDuel(t *testing.T, sc Scenario, ticks int) *State {
	t.Helper()
	s, err := sc.Build(NewScriptedController(DuelScript()...))
	require.NoError(t, err)
	NewLoop(zaptest.NewLogger(t), nil).Run(s, ticks)
	return s
}

func TestDuelTargetLosesSevenHP(t *testing.T) {
	s := runDuel(t, DuelScenario(), 10)

	target, _ := s.Unit("target")
	assert.Equal(t, 15-7, target.Stats.HP)
	attacker, _ := s.Unit("attacker")
	assert.Equal(t, board.C(3, 3), attacker.Pos)
	assert.Equal(t, 20, attacker.Stats.HP)

	assert.Equal(t, 10, s.Tick())
	assert.Equal(t, 2, s.TurnIndex())
	assert.Equal(t, "attacker", s.CurrentUnit())
	assert.False(t, s.IsOver())
}

func TestDuelIsDeterministic(t *testing.T) {
	first := runDuel(t, DuelScenario(), 10)
	second := runDuel(t, DuelScenario(), 10)
	assert.Equal(t, first.Checksum(), second.Checksum())

	other := DuelScenario()
	other.Seed = 7
	assert.NotEqual(t, first.Checksum(), runDuel(t, other, 10).Checksum())
}

func TestDuelEventSequence(t *testing.T) {
	s, err := DuelScenario().Build(NewScriptedController(DuelScript()...))
	require.NoError(t, err)
	loop := NewLoop(zaptest.NewLogger(t), nil)

	var seen []rules.Event
	loop.Bus().Subscribe(func(e rules.Event) error {
		seen = append(seen, e)
		return nil
	})
	loop.Run(s, 10)

	assert.Equal(t, []rules.EventType{
		rules.EventTurnStarted,
		rules.EventUnitMoved,
		rules.EventTurnEndRequested,
		rules.EventTurnEnded,
		rules.EventTurnStarted,
		rules.EventUnitAttacked,
		rules.EventTurnEndRequested,
		rules.EventTurnEnded,
		rules.EventTurnStarted,
	}, eventTypes(seen))
	assert.Equal(t, 1, seen[0].Tick)
	assert.Equal(t, "attacker", seen[0].Unit)
	assert.Equal(t, 0, seen[0].TurnIndex)
	assert.Equal(t, 3, seen[5].Tick)
	assert.Equal(t, 7, seen[5].Amount)
}

func TestInvalidCommandOnlyAdvancesTick(t *testing.T) {
	s := newDuelState(t, NewScriptedController(
		Move{Unit: "attacker", Destination: board.C(-1, 0)},
		EndTurn{Unit: "target"},
	))
	loop := NewLoop(zaptest.NewLogger(t), nil)
	require.Len(t, loop.Start(s), 1)
	before := s.Snapshot()

	assert.Nil(t, loop.Tick(s))
	assert.Nil(t, loop.Tick(s))

	after := s.Snapshot()
	assert.Equal(t, 2, after.Tick)
	after.Tick = before.Tick
	assert.Equal(t, before, after)
}

func TestKillingTheBossEndsTheGame(t *testing.T) {
	strike := Attack{Attacker: "attacker", Target: "target"}
	s := newDuelState(t, NewScriptedController(
		Move{Unit: "attacker", Destination: board.C(3, 3)},
		strike, strike, strike, strike,
	))
	loop := NewLoop(zaptest.NewLogger(t), nil)

	loop.Run(s, 3)
	assert.False(t, s.IsOver())

	events := loop.Tick(s)
	assert.Equal(t, []rules.EventType{rules.EventUnitAttacked, rules.EventUnitKilled, rules.EventGameOver}, eventTypes(events))
	assert.True(t, s.IsOver())
	assert.Equal(t, OutcomeVictory, s.Outcome())

	tick := s.Tick()
	assert.Nil(t, loop.Tick(s), "ticking a finished game is a no-op")
	assert.Equal(t, tick, s.Tick())
}

func TestPoisonKillsUnitAtTurnStart(t *testing.T) {
	sc := DuelScenario()
	sc.Units[1].Statuses = []status.Marker{status.NewMarker(status.KindPoison, 20, 1)}
	s, err := sc.Build(NewScriptedController(EndTurn{Unit: "attacker"}))
	require.NoError(t, err)

	events := NewLoop(zaptest.NewLogger(t), nil).Tick(s)
	assert.Equal(t, []rules.EventType{
		rules.EventTurnStarted,
		rules.EventTurnEndRequested,
		rules.EventTurnEnded,
		rules.EventTurnStarted,
		rules.EventStatusTicked,
		rules.EventStatusExpired,
		rules.EventUnitKilled,
		rules.EventTurnEnded,
		rules.EventTurnStarted,
		rules.EventGameOver,
	}, eventTypes(events))
	assert.Equal(t, "attacker", s.CurrentUnit())
	assert.Equal(t, OutcomeVictory, s.Outcome())
}

func TestPlayerWipedOutIsDefeat(t *testing.T) {
	sc := DuelScenario()
	sc.Roster = []string{"target", "attacker"}
	sc.Units[0].Statuses = []status.Marker{status.NewMarker(status.KindPoison, 50, 1)}
	sc.Objective = objectives.Config{Type: objectives.KindSurviveTurns, Turns: 5}
	s, err := sc.Build(NewScriptedController(EndTurn{Unit: "target"}))
	require.NoError(t, err)

	NewLoop(zaptest.NewLogger(t), nil).Tick(s)
	assert.True(t, s.IsOver())
	assert.Equal(t, OutcomeDefeat, s.Outcome())
}

func TestFaultingSubscriberDoesNotAbortTick(t *testing.T) {
	s := newDuelState(t, NewScriptedController(Move{Unit: "attacker", Destination: board.C(3, 3)}))
	loop := NewLoop(zaptest.NewLogger(t), nil)

	delivered := 0
	loop.Bus().Subscribe(func(rules.Event) error { panic("boom") })
	loop.Bus().Subscribe(func(rules.Event) error { return errors.New("nope") })
	loop.Bus().Subscribe(func(rules.Event) error {
		delivered++
		return nil
	})

	events := loop.Tick(s)
	assert.Equal(t, []rules.EventType{rules.EventTurnStarted, rules.EventUnitMoved}, eventTypes(events))
	assert.Equal(t, 2, delivered)
	u, _ := s.Unit("attacker")
	assert.Equal(t, board.C(3, 3), u.Pos)
}

type countingObserver struct {
	ticks, applied, dropped, events int
	outcome                         Outcome
}

func (o *countingObserver) TickStarted(int)                 { o.ticks++ }
func (o *countingObserver) CommandApplied(Command)          { o.applied++ }
func (o *countingObserver) CommandDropped(Command)          { o.dropped++ }
func (o *countingObserver) EventsPublished(e []rules.Event) { o.events += len(e) }
func (o *countingObserver) GameOver(out Outcome, _ int)     { o.outcome = out }

func TestObserverSeesEveryStep(t *testing.T) {
	script := append(DuelScript(), Attack{Attacker: "target", Target: "target"})
	s := newDuelState(t, NewScriptedController(script...))
	loop := NewLoop(zaptest.NewLogger(t), nil)
	obs := &countingObserver{}
	loop.SetObserver(obs)

	loop.Run(s, 6)
	assert.Equal(t, 6, obs.ticks)
	assert.Equal(t, 4, obs.applied)
	assert.Equal(t, 1, obs.dropped)
	assert.Equal(t, 9, obs.events)
	assert.Equal(t, OutcomeNone, obs.outcome)
}

func TestStunnedFirstUnitLosesOpeningTurn(t *testing.T) {
	sc := DuelScenario()
	sc.Units[0].Statuses = []status.Marker{status.NewMarker(status.KindStun, 0, 1)}
	s, err := sc.Build(NewScriptedController(EndTurn{Unit: "attacker"}))
	require.NoError(t, err)
	loop := NewLoop(zaptest.NewLogger(t), nil)

	var seen []rules.Event
	loop.Bus().Subscribe(func(e rules.Event) error {
		seen = append(seen, e)
		return nil
	})
	events := loop.Tick(s)

	require.Equal(t, []rules.EventType{rules.EventTurnSkipped, rules.EventTurnStarted}, eventTypes(events), "the attacker's end_turn is dropped")
	assert.Equal(t, "attacker", events[0].Unit)
	assert.Equal(t, status.KindStun, events[0].Status)
	assert.Equal(t, "target", events[1].Unit)
	assert.Equal(t, 0, events[1].TurnIndex)
	assert.Equal(t, events, seen)

	assert.Equal(t, "target", s.CurrentUnit())
	attacker, _ := s.Unit("attacker")
	assert.False(t, attacker.Statuses.Has(status.KindStun), "the skipped turn spends the charge")
	assert.True(t, s.Scheduler().Started())
}

func TestPoisonedFirstUnitTicksOnOpeningTurn(t *testing.T) {
	sc := DuelScenario()
	sc.Units[0].Statuses = []status.Marker{status.NewMarker(status.KindPoison, 3, 2)}
	s, err := sc.Build(NewScriptedController(Move{Unit: "attacker", Destination: board.C(3, 3)}))
	require.NoError(t, err)

	events := NewLoop(zaptest.NewLogger(t), nil).Tick(s)
	assert.Equal(t, []rules.EventType{
		rules.EventTurnStarted,
		rules.EventStatusTicked,
		rules.EventUnitMoved,
	}, eventTypes(events))
	assert.Equal(t, 3, events[1].Amount)
	for _, e := range events {
		assert.Equal(t, 1, e.Tick)
	}

	attacker, _ := s.Unit("attacker")
	assert.Equal(t, 17, attacker.Stats.HP)
	assert.Equal(t, board.C(3, 3), attacker.Pos)
	poison, ok := attacker.Statuses.Get(status.KindPoison)
	require.True(t, ok)
	assert.Equal(t, 1, poison.Turns)
}

func TestPoisonKillsFirstUnitBeforeItActs(t *testing.T) {
	sc := DuelScenario()
	sc.Units[0].Statuses = []status.Marker{status.NewMarker(status.KindPoison, 50, 1)}
	sc.Objective = objectives.Config{Type: objectives.KindSurviveTurns, Turns: 5}
	s, err := sc.Build(NewScriptedController(Move{Unit: "attacker", Destination: board.C(3, 3)}))
	require.NoError(t, err)

	events := NewLoop(zaptest.NewLogger(t), nil).Tick(s)
	assert.Equal(t, []rules.EventType{
		rules.EventTurnStarted,
		rules.EventStatusTicked,
		rules.EventStatusExpired,
		rules.EventUnitKilled,
		rules.EventTurnEnded,
		rules.EventTurnStarted,
		rules.EventGameOver,
	}, eventTypes(events))
	assert.Equal(t, OutcomeDefeat, s.Outcome())
	attacker, _ := s.Unit("attacker")
	assert.Equal(t, board.C(2, 4), attacker.Pos, "a unit killed at turn start never acts")
}

func TestStartOpensFirstTurnOnce(t *testing.T) {
	s := newDuelState(t, nil)
	loop := NewLoop(zaptest.NewLogger(t), nil)

	events := loop.Start(s)
	require.Len(t, events, 1)
	assert.Equal(t, rules.EventTurnStarted, events[0].Type)
	assert.Equal(t, 0, events[0].Tick)
	assert.Nil(t, loop.Start(s))
	assert.Nil(t, loop.Tick(s), "the first tick does not reopen the turn")
	assert.Equal(t, 1, s.Tick())
}
