package rules

import (
	"fmt"
	"sync"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/status"
	"go.uber.org/zap"
)

// EventType indicates the category of a simulation event. The set is closed:
// objectives and other consumers match on these exact values.
type EventType string

const (
	EventUnitMoved        EventType = "UNIT_MOVED"
	EventUnitAttacked     EventType = "UNIT_ATTACKED"
	EventUnitKilled       EventType = "UNIT_KILLED"
	EventTurnEndRequested EventType = "TURN_END_REQUESTED"
	EventTurnEnded        EventType = "TURN_ENDED"
	EventTurnStarted      EventType = "TURN_STARTED"
	EventTurnSkipped      EventType = "TURN_SKIPPED"
	EventStatusApplied    EventType = "STATUS_APPLIED"
	EventStatusTicked     EventType = "STATUS_TICKED"
	EventStatusExpired    EventType = "STATUS_EXPIRED"
	EventGameOver         EventType = "GAME_OVER"
)

var knownEventTypes = map[EventType]bool{
	EventUnitMoved:        true,
	EventUnitAttacked:     true,
	EventUnitKilled:       true,
	EventTurnEndRequested: true,
	EventTurnEnded:        true,
	EventTurnStarted:      true,
	EventTurnSkipped:      true,
	EventStatusApplied:    true,
	EventStatusTicked:     true,
	EventStatusExpired:    true,
	EventGameOver:         true,
}

// Valid reports whether et belongs to the closed event set.
func (et EventType) Valid() bool {
	return knownEventTypes[et]
}

// Event is an immutable record of something that happened during a tick.
// It holds no slices or maps, so every copy is independent.
//
// Field meaning per type:
//
//	UNIT_MOVED          Unit, From, To
//	UNIT_ATTACKED       Unit=attacker, Other=target, Amount=damage
//	UNIT_KILLED         Unit=victim, Other=killer (empty for status damage)
//	TURN_END_REQUESTED  Unit
//	TURN_ENDED          Unit, Side, TurnIndex of the closing turn
//	TURN_STARTED        Unit, Side, TurnIndex of the opening turn
//	TURN_SKIPPED        Unit, Side, Status
//	STATUS_APPLIED      Unit, Other=source, Status, Amount=magnitude
//	STATUS_TICKED       Unit, Status, Amount=damage
//	STATUS_EXPIRED      Unit, Status
//	GAME_OVER           Detail=outcome
type Event struct {
	Type      EventType   `json:"type"`
	Tick      int         `json:"tick"`
	Unit      string      `json:"unit,omitempty"`
	Other     string      `json:"other,omitempty"`
	Side      board.Side  `json:"side,omitempty"`
	From      board.Coord `json:"from"`
	To        board.Coord `json:"to"`
	Amount    int         `json:"amount,omitempty"`
	TurnIndex int         `json:"turn_index"`
	Status    status.Kind `json:"status,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

func (e Event) String() string {
	switch e.Type {
	case EventUnitMoved:
		return fmt.Sprintf("%s@%d %s %s->%s", e.Type, e.Tick, e.Unit, e.From, e.To)
	case EventUnitAttacked:
		return fmt.Sprintf("%s@%d %s->%s dmg=%d", e.Type, e.Tick, e.Unit, e.Other, e.Amount)
	case EventTurnEnded, EventTurnStarted:
		return fmt.Sprintf("%s@%d %s side=%s turn=%d", e.Type, e.Tick, e.Unit, e.Side, e.TurnIndex)
	case EventGameOver:
		return fmt.Sprintf("%s@%d %s", e.Type, e.Tick, e.Detail)
	default:
		return fmt.Sprintf("%s@%d %s", e.Type, e.Tick, e.Unit)
	}
}

// Stamp returns copies of events with Tick set.
func Stamp(tick int, events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		e.Tick = tick
		out[i] = e
	}
	return out
}

// Handler reacts to a published event. A returned error is logged and does
// not stop delivery to other handlers.
type Handler func(Event) error

// Handle identifies a subscription.
type Handle int

type subscription struct {
	handle  Handle
	filter  map[EventType]bool
	handler Handler
}

func (s subscription) wants(et EventType) bool {
	return len(s.filter) == 0 || s.filter[et]
}

// FaultHook is told about every handler that failed or panicked.
type FaultHook func(handle Handle, event Event, err error)

// EventBus is a synchronous publish/subscribe dispatcher. Subscribers are
// invoked in registration order and isolated from each other's failures.
type EventBus struct {
	logger *zap.Logger

	mu         sync.RWMutex
	subs       []subscription
	nextHandle Handle
	onFault    FaultHook
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{logger: logger}
}

// SetFaultHook installs a callback for handler failures.
func (bus *EventBus) SetFaultHook(hook FaultHook) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.onFault = hook
}

// Subscribe registers a handler. With no filter types the handler receives
// every event; otherwise only events whose type is listed.
func (bus *EventBus) Subscribe(handler Handler, filter ...EventType) Handle {
	if handler == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()

	handle := bus.nextHandle
	bus.nextHandle++
	sub := subscription{handle: handle, handler: handler}
	if len(filter) > 0 {
		sub.filter = make(map[EventType]bool, len(filter))
		for _, et := range filter {
			sub.filter[et] = true
		}
	}
	bus.subs = append(bus.subs, sub)
	return handle
}

// Unsubscribe removes the subscription identified by handle.
func (bus *EventBus) Unsubscribe(handle Handle) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, s := range bus.subs {
		if s.handle == handle {
			bus.subs = append(bus.subs[:i:i], bus.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscriptions.
func (bus *EventBus) Len() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subs)
}

// Publish delivers each event, in order, to every matching subscriber. The
// subscriber list is captured before dispatch, so handlers may subscribe or
// unsubscribe without affecting the current call.
func (bus *EventBus) Publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	bus.mu.RLock()
	subs := make([]subscription, len(bus.subs))
	copy(subs, bus.subs)
	hook := bus.onFault
	bus.mu.RUnlock()

	for _, event := range events {
		for _, s := range subs {
			if !s.wants(event.Type) {
				continue
			}
			if err := bus.deliver(s, event); err != nil {
				bus.logger.Warn("event handler failed",
					zap.Int("handle", int(s.handle)),
					zap.String("event_type", string(event.Type)),
					zap.Int("tick", event.Tick),
					zap.Error(err),
				)
				if hook != nil {
					hook(s.handle, event, err)
				}
			}
		}
	}
}

func (bus *EventBus) deliver(s subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler(event)
}
