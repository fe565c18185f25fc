package game

import (
	"fmt"
	"sort"
)

// Controller supplies the command for the current tick. Returning nil means
// no action this tick. Decide may read the state and draw from its RNG but
// must not mutate anything else.
type Controller interface {
	Decide(s *State) Command
}

// ControllerFunc adapts a function to Controller.
type ControllerFunc func(s *State) Command

func (f ControllerFunc) Decide(s *State) Command { return f(s) }

type scriptedCommand struct {
	tick int
	cmd  Command
}

// ScriptedController plays back a fixed list of commands. A sequential script
// issues one command per Decide call; a tick-aligned script, built from
// replay records, only issues a command on the tick it was recorded on.
type ScriptedController struct {
	script  []scriptedCommand
	next    int
	aligned bool
}

// NewScriptedController issues cmds in order, one per tick, then nil.
func NewScriptedController(cmds ...Command) *ScriptedController {
	script := make([]scriptedCommand, len(cmds))
	for i, c := range cmds {
		script[i] = scriptedCommand{cmd: c}
	}
	return &ScriptedController{script: script}
}

// NewReplayController replays records on the ticks they were issued.
func NewReplayController(records []CommandRecord) (*ScriptedController, error) {
	script := make([]scriptedCommand, 0, len(records))
	for _, r := range records {
		cmd, err := r.Command()
		if err != nil {
			return nil, err
		}
		if r.Tick <= 0 {
			return nil, fmt.Errorf("replay record %s has invalid tick %d", r.Type, r.Tick)
		}
		script = append(script, scriptedCommand{tick: r.Tick, cmd: cmd})
	}
	sort.SliceStable(script, func(i, j int) bool { return script[i].tick < script[j].tick })
	return &ScriptedController{script: script, aligned: true}, nil
}

func (c *ScriptedController) Decide(s *State) Command {
	if !c.aligned {
		if c.next >= len(c.script) {
			return nil
		}
		cmd := c.script[c.next].cmd
		c.next++
		return cmd
	}

	tick := s.Tick()
	for c.next < len(c.script) && c.script[c.next].tick < tick {
		c.next++
	}
	if c.next < len(c.script) && c.script[c.next].tick == tick {
		cmd := c.script[c.next].cmd
		c.next++
		return cmd
	}
	return nil
}

// Remaining is the number of commands not yet issued.
func (c *ScriptedController) Remaining() int {
	return len(c.script) - c.next
}

// RecordingController wraps another controller and records every command it
// issues, valid or not, so the match can be replayed exactly.
type RecordingController struct {
	inner   Controller
	sink    func(CommandRecord)
	records []CommandRecord
}

// NewRecordingController records what inner decides. sink, if set, is called
// with each record as it is made.
func NewRecordingController(inner Controller, sink func(CommandRecord)) *RecordingController {
	return &RecordingController{inner: inner, sink: sink}
}

func (c *RecordingController) Decide(s *State) Command {
	if c.inner == nil {
		return nil
	}
	cmd := c.inner.Decide(s)
	if cmd == nil {
		return nil
	}
	if rec, err := RecordCommand(s.Tick(), cmd); err == nil {
		c.records = append(c.records, rec)
		if c.sink != nil {
			c.sink(rec)
		}
	}
	return cmd
}

// Records returns a copy of everything recorded so far.
func (c *RecordingController) Records() []CommandRecord {
	return append([]CommandRecord(nil), c.records...)
}
