package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/objectives"
)

// Checksum returns a SHA-256 hex digest of the canonical state. Two runs from
// the same seed and command log must produce the same checksum.
func (s *State) Checksum() string {
	sum := sha256.Sum256([]byte(s.canonical()))
	return hex.EncodeToString(sum[:])
}

// canonical renders every field that can influence future ticks in a fixed
// order. Units are listed by id and the objective tree depth first.
func (s *State) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "STATE:%d|%t|%s|%s\n", s.tick, s.over, s.outcome, s.playerSide)
	// Draw count excluded: replays do not repeat controller draws.
	fmt.Fprintf(&buf, "RNG:%d\n", s.rng.Seed())
	fmt.Fprintf(&buf, "TURN:%s|%s|%d|%d|%t|%t\n",
		s.scheduler.CurrentUnit(),
		s.scheduler.CurrentSide(),
		s.scheduler.TurnIndex(),
		s.scheduler.Round(),
		s.scheduler.PendingEnd(),
		s.scheduler.Started(),
	)
	buf.WriteString("ROSTER:")
	buf.WriteString(strings.Join(s.scheduler.Roster(), ","))
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "GRID:%dx%d\n", s.grid.Width(), s.grid.Height())
	for y := 0; y < s.grid.Height(); y++ {
		for x := 0; x < s.grid.Width(); x++ {
			c := board.C(x, y)
			if t := s.grid.Tile(c); t.Cost != 1 || t.Blocked {
				fmt.Fprintf(&buf, "  TILE:%s|%d|%t\n", c, t.Cost, t.Blocked)
			}
		}
	}

	for _, id := range s.ids {
		u := s.units[id]
		fmt.Fprintf(&buf, "UNIT:%s|%s|%s|%s|%d/%d|%d|%d|%d|%s\n",
			u.ID,
			u.Team,
			u.Pos,
			u.Facing,
			u.Stats.HP,
			u.Stats.MaxHP,
			u.Stats.Attack,
			u.Stats.Defense,
			u.Stats.Height,
			u.Statuses.String(),
		)
	}

	objectives.Walk(s.objective, func(depth int, o objectives.Objective) {
		fmt.Fprintf(&buf, "OBJECTIVE:%d|%s|%t|%t|%s\n",
			depth,
			o.Kind(),
			o.IsComplete(s),
			o.IsFailed(s),
			o.Summary(s),
		)
	})

	return buf.String()
}
