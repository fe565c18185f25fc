package rules

import (
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/status"
)

// ApplyStatus adds a marker to target. Dead units take no new markers.
func ApplyStatus(target *board.Unit, marker status.Marker, sourceID string) []Event {
	if !target.Alive() || marker.Turns <= 0 {
		return nil
	}
	target.Statuses.Add(marker)
	return []Event{{
		Type:   EventStatusApplied,
		Unit:   target.ID,
		Other:  sourceID,
		Status: marker.Kind,
		Amount: marker.Magnitude,
	}}
}

// TickStatuses runs the turn-start effects of unit's markers. Poison deals its
// magnitude and loses one turn. Stun is left alone: skipping a turn is the
// scheduler's decision, not a rules effect.
func TickStatuses(unit *board.Unit) []Event {
	if !unit.Alive() {
		return nil
	}
	var events []Event
	if m, ok := unit.Statuses.Get(status.KindPoison); ok {
		unit.TakeDamage(m.Magnitude)
		events = append(events, Event{
			Type:   EventStatusTicked,
			Unit:   unit.ID,
			Status: status.KindPoison,
			Amount: m.Magnitude,
		})
		unit.Statuses.Consume(status.KindPoison)
		if !unit.Statuses.Has(status.KindPoison) {
			events = append(events, Event{Type: EventStatusExpired, Unit: unit.ID, Status: status.KindPoison})
		}
		if !unit.Alive() {
			events = append(events, Event{Type: EventUnitKilled, Unit: unit.ID})
		}
	}
	return events
}
