package game

import (
	"go.uber.org/zap"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/objectives"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rules"
)

// Observer is told what the loop did on each tick. Implementations must be
// cheap and must not touch the state.
type Observer interface {
	TickStarted(tick int)
	CommandApplied(cmd Command)
	CommandDropped(cmd Command)
	EventsPublished(events []rules.Event)
	GameOver(outcome Outcome, tick int)
}

type nopObserver struct{}

func (nopObserver) TickStarted(int)               {}
func (nopObserver) CommandApplied(Command)        {}
func (nopObserver) CommandDropped(Command)        {}
func (nopObserver) EventsPublished([]rules.Event) {}
func (nopObserver) GameOver(Outcome, int)         {}

// Loop advances a State one tick at a time.
type Loop struct {
	logger   *zap.Logger
	bus      *rules.EventBus
	observer Observer
}

// NewLoop creates a loop publishing on bus. A nil bus gets a private one.
func NewLoop(logger *zap.Logger, bus *rules.EventBus) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = rules.NewEventBus(logger)
	}
	return &Loop{
		logger:   logger,
		bus:      bus,
		observer: nopObserver{},
	}
}

// SetObserver installs o. Nil restores the no-op observer.
func (l *Loop) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	l.observer = o
}

// Bus returns the bus the loop publishes on.
func (l *Loop) Bus() *rules.EventBus { return l.bus }

// Start opens the first turn and runs its turn-start processing, exactly as
// a later turn is opened. Tick calls it on the first tick; calling it earlier
// publishes the opening events at tick 0. Once the first turn is open it
// returns nil.
func (l *Loop) Start(s *State) []rules.Event {
	if s.over || s.scheduler.Started() {
		return nil
	}
	opening := s.scheduler.Start(s)
	published, died := l.beginTurn(s, l.dispatch(s, opening))
	if died {
		published = append(published, l.advanceTurns(s)...)
	}
	published = append(published, l.checkOutcome(s)...)
	return published
}

// Tick runs one step and returns every event it published, in order.
//
// A missing or invalid command only advances the tick counter. A valid one is
// applied and its events are published and fed to the objectives before the
// scheduler gets a chance to close the turn. The objective root is checked
// last and ends the game once it has resolved.
func (l *Loop) Tick(s *State) []rules.Event {
	if s.over {
		return nil
	}
	s.tick++
	l.observer.TickStarted(s.tick)

	opening := l.Start(s)
	if s.over {
		return opening
	}

	var cmd Command
	if s.controller != nil {
		cmd = s.controller.Decide(s)
	}
	if cmd == nil {
		return opening
	}
	if !cmd.Validate(s) {
		l.logger.Debug("dropped invalid command",
			zap.Int("tick", s.tick),
			zap.String("command", string(cmd.Type())),
			zap.Any("detail", cmd),
		)
		l.observer.CommandDropped(cmd)
		return opening
	}

	events, err := cmd.Apply(s)
	if err != nil {
		l.logger.Warn("failed to apply validated command",
			zap.Int("tick", s.tick),
			zap.String("command", string(cmd.Type())),
			zap.Error(err),
		)
		l.observer.CommandDropped(cmd)
		return opening
	}
	l.observer.CommandApplied(cmd)

	published := append(opening, l.dispatch(s, events)...)
	published = append(published, l.advanceTurns(s)...)
	published = append(published, l.checkOutcome(s)...)
	return published
}

// Run ticks until the game is over or maxTicks have run, and returns the
// number of ticks executed.
func (l *Loop) Run(s *State, maxTicks int) int {
	n := 0
	for n < maxTicks && !s.over {
		l.Tick(s)
		n++
	}
	return n
}

func (l *Loop) dispatch(s *State, events []rules.Event) []rules.Event {
	if len(events) == 0 {
		return nil
	}
	stamped := rules.Stamp(s.tick, events)
	for _, e := range stamped {
		l.logger.Debug("event", zap.Int("tick", e.Tick), zap.String("type", string(e.Type)), zap.String("unit_id", e.Unit))
	}
	l.bus.Publish(stamped...)
	s.objective.UpdateFromEvents(stamped, s)
	l.observer.EventsPublished(stamped)
	return stamped
}

// advanceTurns lets the scheduler close a flagged turn, then runs the new
// unit's status ticks. A unit killed by its own poison ends its turn at once,
// so this may advance several times, bounded by the roster length.
func (l *Loop) advanceTurns(s *State) []rules.Event {
	var out []rules.Event
	for i := 0; i <= len(s.ids); i++ {
		turn := s.scheduler.MaybeAdvance(s)
		if turn == nil {
			return out
		}
		published, died := l.beginTurn(s, l.dispatch(s, turn))
		out = append(out, published...)
		if !died {
			return out
		}
	}
	return out
}

// beginTurn runs status ticks for the unit whose turn the already published
// turn events opened. It reports whether that unit died, in which case its
// turn has been flagged to end.
func (l *Loop) beginTurn(s *State, turn []rules.Event) ([]rules.Event, bool) {
	if len(turn) == 0 || turn[len(turn)-1].Type != rules.EventTurnStarted {
		return turn, false
	}
	u, ok := s.Unit(s.scheduler.CurrentUnit())
	if !ok {
		return turn, false
	}
	out := append(turn, l.dispatch(s, rules.TickStatuses(u))...)
	if u.Alive() {
		return out, false
	}
	s.scheduler.FlagEndOfTurn()
	return out, true
}

func (l *Loop) checkOutcome(s *State) []rules.Event {
	var outcome Outcome
	switch {
	case s.objective.IsFailed(s):
		outcome = OutcomeDefeat
	case s.objective.IsComplete(s):
		outcome = OutcomeVictory
	default:
		return nil
	}
	s.finish(outcome)

	l.logger.Info("game over",
		zap.Int("tick", s.tick),
		zap.String("outcome", string(outcome)),
		zap.Strings("objectives", objectives.SummaryLines(s.objective, s)),
	)
	events := l.dispatch(s, []rules.Event{{
		Type:   rules.EventGameOver,
		Side:   s.playerSide,
		Detail: string(outcome),
	}})
	l.observer.GameOver(outcome, s.tick)
	return events
}
