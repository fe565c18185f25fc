package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/config"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rules"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/spectator"
)

const defaultStoreTimeout = 5 * time.Second

// publisher receives the state after every tick.
type publisher interface {
	Publish(s *game.State, events []rules.Event) error
}

type matchOptions struct {
	matchID  string
	store    game.ReplayStore
	observer game.Observer
	hub      publisher
}

type matchResult struct {
	state  *game.State
	replay *game.ReplayLog
}

func newController(cfg *config.Config) (game.Controller, error) {
	switch cfg.Simulation.Controller {
	case config.ControllerSkirmish:
		return game.NewSkirmishController(cfg.Simulation.MoveBudget), nil
	case config.ControllerScripted:
		ctrl, err := game.NewReplayController(cfg.Script)
		if err != nil {
			return nil, fmt.Errorf("invalid script: %w", err)
		}
		return ctrl, nil
	default:
		return nil, fmt.Errorf("unknown controller %q", cfg.Simulation.Controller)
	}
}

func storeTimeout(cfg config.ReplayConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return defaultStoreTimeout
	}
	return cfg.Timeout
}

// runMatch plays the configured scenario until it ends, max_ticks is reached
// or ctx is cancelled. A replay is saved whenever a store is given, including
// for interrupted matches.
func runMatch(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts matchOptions) (*matchResult, error) {
	ctrl, err := newController(cfg)
	if err != nil {
		return nil, err
	}

	var recorder *game.ReplayRecorder
	if opts.store != nil {
		recorder = game.NewReplayRecorder(logger, opts.store)
		ctrl = game.NewRecordingController(ctrl, recorder.Sink(opts.matchID))
	}

	s, err := cfg.Scenario.Build(ctrl)
	if err != nil {
		return nil, err
	}
	if recorder != nil {
		recorder.StartRecording(opts.matchID, cfg.Scenario.Name, s)
	}

	loop := game.NewLoop(logger, nil)
	if opts.observer != nil {
		loop.SetObserver(opts.observer)
	}
	publish := func(events []rules.Event) {
		if opts.hub == nil {
			return
		}
		if err := opts.hub.Publish(s, events); err != nil && !errors.Is(err, spectator.ErrHubClosed) {
			logger.Warn("failed to publish snapshot", zap.Int("tick", s.Tick()), zap.Error(err))
		}
	}
	publish(nil)

	delay := cfg.Simulation.TickDelay
	for s.Tick() < cfg.Simulation.MaxTicks && !s.IsOver() {
		if ctx.Err() != nil {
			logger.Warn("match interrupted", zap.Int("tick", s.Tick()))
			break
		}
		publish(loop.Tick(s))

		if delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}

	logger.Info("match finished",
		zap.String("match_id", opts.matchID),
		zap.Int("tick", s.Tick()),
		zap.Bool("over", s.IsOver()),
		zap.String("outcome", string(s.Outcome())),
		zap.String("checksum", s.Checksum()),
	)

	result := &matchResult{state: s}
	if recorder != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout(cfg.Replay))
		defer cancel()
		log, err := recorder.Finish(saveCtx, opts.matchID, s)
		if err != nil {
			return result, err
		}
		result.replay = log
	}
	return result, nil
}
