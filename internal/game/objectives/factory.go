package objectives

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
	"gopkg.in/yaml.v3"
)

// Config is the declarative form of an objective tree. Which fields are read
// depends on Type.
type Config struct {
	Type     Kind          `json:"type" yaml:"type" mapstructure:"type"`
	Boss     string        `json:"boss,omitempty" yaml:"boss,omitempty" mapstructure:"boss"`
	Turns    int           `json:"turns,omitempty" yaml:"turns,omitempty" mapstructure:"turns"`
	Zones    []board.Coord `json:"zones,omitempty" yaml:"zones,omitempty" mapstructure:"zones"`
	Required int           `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
	Unit     string        `json:"unit,omitempty" yaml:"unit,omitempty" mapstructure:"unit"`
	Goal     *board.Coord  `json:"goal,omitempty" yaml:"goal,omitempty" mapstructure:"goal"`
	Children []Config      `json:"children,omitempty" yaml:"children,omitempty" mapstructure:"children"`
}

// Build turns cfg into an objective tree. Unknown types and missing fields
// are reported with the path of the offending node.
func Build(cfg Config) (Objective, error) {
	return build(cfg, "objective")
}

func build(cfg Config, path string) (Objective, error) {
	switch cfg.Type {
	case KindEliminateBoss:
		boss := strings.TrimSpace(cfg.Boss)
		if boss == "" {
			return nil, fmt.Errorf("%s: %s requires boss", path, cfg.Type)
		}
		return NewEliminateBoss(boss), nil

	case KindSurviveTurns:
		if cfg.Turns <= 0 {
			return nil, fmt.Errorf("%s: %s requires turns > 0, got %d", path, cfg.Type, cfg.Turns)
		}
		return NewSurviveNTurns(cfg.Turns), nil

	case KindHoldZones:
		if len(cfg.Zones) == 0 {
			return nil, fmt.Errorf("%s: %s requires at least one zone", path, cfg.Type)
		}
		seen := make(map[board.Coord]bool, len(cfg.Zones))
		for _, z := range cfg.Zones {
			if seen[z] {
				return nil, fmt.Errorf("%s: %s lists zone %s twice", path, cfg.Type, z)
			}
			seen[z] = true
		}
		if cfg.Required <= 0 || cfg.Required > len(cfg.Zones) {
			return nil, fmt.Errorf("%s: %s requires 1 <= required <= %d, got %d", path, cfg.Type, len(cfg.Zones), cfg.Required)
		}
		if cfg.Turns <= 0 {
			return nil, fmt.Errorf("%s: %s requires turns > 0, got %d", path, cfg.Type, cfg.Turns)
		}
		return NewHoldZones(cfg.Zones, cfg.Required, cfg.Turns), nil

	case KindEscort:
		unit := strings.TrimSpace(cfg.Unit)
		if unit == "" {
			return nil, fmt.Errorf("%s: %s requires unit", path, cfg.Type)
		}
		if cfg.Goal == nil {
			return nil, fmt.Errorf("%s: %s requires goal", path, cfg.Type)
		}
		return NewEscort(unit, *cfg.Goal), nil

	case KindCompound:
		if len(cfg.Children) == 0 {
			return nil, fmt.Errorf("%s: %s requires at least one child", path, cfg.Type)
		}
		children := make([]Objective, 0, len(cfg.Children))
		for i, c := range cfg.Children {
			child, err := build(c, fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return NewCompound(children...), nil

	case "":
		return nil, fmt.Errorf("%s: missing type", path)
	default:
		return nil, fmt.Errorf("%s: unknown objective type %q", path, cfg.Type)
	}
}

// ParseConfig decodes a YAML objective tree. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse objective config: %w", err)
	}
	return cfg, nil
}
