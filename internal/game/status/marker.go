// Package status holds the status markers carried by units. Markers are pure
// data: the rules engine ticks them and the turn scheduler reads them, but
// nothing in this package decides what a marker does.
package status

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies a status marker.
type Kind string

const (
	// KindPoison deals its magnitude as damage at each turn start of its owner.
	KindPoison Kind = "poison"
	// KindStun makes the owner lose its next turn once per remaining charge.
	KindStun Kind = "stun"
)

// MaxTurns caps the turns a single marker can hold, including after merges.
const MaxTurns = 99

var kindOrder = map[Kind]int{
	KindPoison: 0,
	KindStun:   1,
}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindOrder[k]; !ok {
		return "", fmt.Errorf("unknown status kind %q", s)
	}
	return k, nil
}

// Marker is a single active status on a unit.
// Turns counts the remaining turn starts (poison) or skip charges (stun).
type Marker struct {
	Kind      Kind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Magnitude int  `json:"magnitude,omitempty" yaml:"magnitude" mapstructure:"magnitude"`
	Turns     int  `json:"turns" yaml:"turns" mapstructure:"turns"`
}

// NewMarker creates a marker lasting between one and MaxTurns turns.
func NewMarker(kind Kind, magnitude, turns int) Marker {
	if turns <= 0 {
		turns = 1
	}
	if turns > MaxTurns {
		turns = MaxTurns
	}
	if magnitude < 0 {
		magnitude = 0
	}
	return Marker{Kind: kind, Magnitude: magnitude, Turns: turns}
}

func (m Marker) String() string {
	if m.Magnitude > 0 {
		return fmt.Sprintf("%s(%d)x%d", m.Kind, m.Magnitude, m.Turns)
	}
	return fmt.Sprintf("%sx%d", m.Kind, m.Turns)
}

// Set is the collection of markers on one unit, at most one per kind, kept
// sorted by kind so iteration order never depends on insertion history.
type Set struct {
	markers []Marker
}

// Add merges a marker into the set. An existing marker of the same kind keeps
// the larger magnitude and accumulates turns up to MaxTurns.
func (s *Set) Add(m Marker) {
	if m.Turns <= 0 {
		return
	}
	m.Turns = min(m.Turns, MaxTurns)
	for i := range s.markers {
		if s.markers[i].Kind == m.Kind {
			s.markers[i].Turns = min(s.markers[i].Turns+m.Turns, MaxTurns)
			if m.Magnitude > s.markers[i].Magnitude {
				s.markers[i].Magnitude = m.Magnitude
			}
			return
		}
	}
	s.markers = append(s.markers, m)
	sort.SliceStable(s.markers, func(i, j int) bool {
		return kindOrder[s.markers[i].Kind] < kindOrder[s.markers[j].Kind]
	})
}

// Get returns the marker of the given kind.
func (s *Set) Get(kind Kind) (Marker, bool) {
	for _, m := range s.markers {
		if m.Kind == kind {
			return m, true
		}
	}
	return Marker{}, false
}

// Has reports whether a marker of the given kind is active.
func (s *Set) Has(kind Kind) bool {
	_, ok := s.Get(kind)
	return ok
}

// Consume removes one turn from the marker of the given kind, dropping it when
// it runs out. Returns false if no such marker was active.
func (s *Set) Consume(kind Kind) bool {
	for i := range s.markers {
		if s.markers[i].Kind != kind {
			continue
		}
		s.markers[i].Turns--
		if s.markers[i].Turns <= 0 {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
		}
		return true
	}
	return false
}

// Remove drops the marker of the given kind entirely.
func (s *Set) Remove(kind Kind) bool {
	for i := range s.markers {
		if s.markers[i].Kind == kind {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return true
		}
	}
	return false
}

// All returns a copy of the active markers in kind order.
func (s *Set) All() []Marker {
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Len returns the number of active markers.
func (s *Set) Len() int {
	return len(s.markers)
}

// Copy creates a deep copy of the set.
func (s *Set) Copy() Set {
	return Set{markers: s.All()}
}

func (s *Set) String() string {
	parts := make([]string, len(s.markers))
	for i, m := range s.markers {
		parts[i] = m.String()
	}
	return strings.Join(parts, ",")
}
