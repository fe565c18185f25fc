package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/objectives"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Simulation.MaxTicks)
	assert.Equal(t, ControllerScripted, cfg.Simulation.Controller)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 5*time.Second, cfg.Replay.Timeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, game.DuelScenario(), cfg.Scenario)
	require.Len(t, cfg.Script, 4)
	assert.Equal(t, game.CommandRecord{Tick: 1, Type: game.CommandMove, Unit: "attacker", Destination: board.C(3, 3)}, cfg.Script[0])
}

func TestLoadScenarioFromFile(t *testing.T) {
	path := writeConfig(t, `
simulation:
  controller: skirmish
  move_budget: 2
  max_ticks: 80
  tick_delay: 50ms
logging:
  level: debug
  format: json
scenario:
  name: crossing
  seed: 42
  width: 6
  height: 4
  player_side: blue
  tiles:
    - pos: {x: 2, y: 1}
      blocked: true
    - pos: {x: 3, y: 1}
      cost: 2
  units:
    - id: knight
      team: blue
      pos: {x: 0, y: 0}
      facing: E
      stats: {hp: 14, attack: 6, defense: 2}
    - id: goblin
      team: red
      pos: {x: 5, y: 3}
      stats: {hp: 8, attack: 4, defense: 1}
      on_hit:
        - kind: poison
          magnitude: 1
          turns: 2
  objective:
    type: compound
    children:
      - type: eliminate_boss
        boss: goblin
      - type: survive_turns
        turns: 10
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ControllerSkirmish, cfg.Simulation.Controller)
	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.TickDelay)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Script)

	sc := cfg.Scenario
	assert.Equal(t, "crossing", sc.Name)
	assert.Equal(t, uint64(42), sc.Seed)
	assert.Equal(t, board.Side("blue"), sc.PlayerSide)
	require.Len(t, sc.Tiles, 2)
	assert.True(t, sc.Tiles[0].Blocked)
	require.Len(t, sc.Units, 2)
	assert.Equal(t, board.C(5, 3), sc.Units[1].Pos)
	require.Len(t, sc.Units[1].OnHit, 1)
	assert.Equal(t, objectives.KindCompound, sc.Objective.Type)
	require.Len(t, sc.Objective.Children, 2)
	assert.Equal(t, 10, sc.Objective.Children[1].Turns)

	s, err := sc.Build(game.NewSkirmishController(cfg.Simulation.MoveBudget))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Grid().Cost(board.C(3, 1)))
}

func TestLoadScriptFromFile(t *testing.T) {
	path := writeConfig(t, `
script:
  - tick: 1
    type: end_turn
    unit: attacker
  - tick: 2
    type: attack
    unit: target
    target: attacker
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Script, 2)
	assert.Equal(t, game.CommandAttack, cfg.Script[1].Type)
	assert.Equal(t, "attacker", cfg.Script[1].Target)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TACTICS_SIMULATION_MAX_TICKS", "33")
	t.Setenv("TACTICS_LOGGING_LEVEL", "warn")
	t.Setenv("TACTICS_METRICS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 33, cfg.Simulation.MaxTicks)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
simulation:
  controller: telepathy
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telepathy")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero ticks", func(c *Config) { c.Simulation.MaxTicks = 0 }, "max_ticks"},
		{"skirmish without budget", func(c *Config) {
			c.Simulation.Controller = ControllerSkirmish
			c.Simulation.MoveBudget = 0
		}, "move_budget"},
		{"negative delay", func(c *Config) { c.Simulation.TickDelay = -time.Second }, "tick_delay"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"file store without dir", func(c *Config) {
			c.Replay.Enabled = true
			c.Replay.Directory = ""
		}, "replay.directory"},
		{"postgres without url", func(c *Config) {
			c.Replay.Enabled = true
			c.Replay.Store = StorePostgres
		}, "database_url"},
		{"unknown store", func(c *Config) {
			c.Replay.Enabled = true
			c.Replay.Store = "s3"
		}, "replay.store"},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Address = ""
		}, "metrics.address"},
		{"spectator without buffer", func(c *Config) {
			c.Spectator.Enabled = true
			c.Spectator.SendBuffer = 0
		}, "send_buffer"},
		{"bad script entry", func(c *Config) {
			c.Script = append(c.Script, game.CommandRecord{Tick: 9, Type: "teleport"})
		}, "script[4]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())
}

func TestShippedConfigMatchesDuel(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, game.DuelScenario(), cfg.Scenario)
	assert.Equal(t, duelScript(), cfg.Script)
	assert.Equal(t, "replays", cfg.Replay.Directory)
}
