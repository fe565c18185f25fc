// Package metrics exports simulation activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/rules"
)

const (
	resultApplied = "applied"
	resultDropped = "dropped"
)

// Collector bundles the loop metrics and implements game.Observer so a Loop
// can drive it directly.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks    prometheus.Counter
	Commands *prometheus.CounterVec
	Events   *prometheus.CounterVec
	Games    *prometheus.CounterVec
	LastTick prometheus.Gauge
}

var _ game.Observer = (*Collector)(nil)

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice on the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tactics_ticks_total",
		Help: "Total number of simulation ticks run.",
	}), "tactics_ticks_total")
	if err != nil {
		return nil, err
	}
	commands, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tactics_commands_total",
		Help: "Commands issued by controllers, labeled by command type and whether they were applied or dropped.",
	}, []string{"type", "result"}), "tactics_commands_total")
	if err != nil {
		return nil, err
	}
	events, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tactics_events_total",
		Help: "Events published on the bus, labeled by event type.",
	}, []string{"type"}), "tactics_events_total")
	if err != nil {
		return nil, err
	}
	games, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tactics_games_finished_total",
		Help: "Finished games, labeled by outcome.",
	}, []string{"outcome"}), "tactics_games_finished_total")
	if err != nil {
		return nil, err
	}
	lastTick, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tactics_last_tick",
		Help: "Tick number most recently started.",
	}), "tactics_last_tick")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer: gatherer,
		Ticks:    ticks,
		Commands: commands,
		Events:   events,
		Games:    games,
		LastTick: lastTick,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) TickStarted(tick int) {
	c.Ticks.Inc()
	c.LastTick.Set(float64(tick))
}

func (c *Collector) CommandApplied(cmd game.Command) {
	c.Commands.WithLabelValues(string(cmd.Type()), resultApplied).Inc()
}

func (c *Collector) CommandDropped(cmd game.Command) {
	c.Commands.WithLabelValues(string(cmd.Type()), resultDropped).Inc()
}

func (c *Collector) EventsPublished(events []rules.Event) {
	for _, e := range events {
		c.Events.WithLabelValues(string(e.Type)).Inc()
	}
}

func (c *Collector) GameOver(outcome game.Outcome, _ int) {
	c.Games.WithLabelValues(string(outcome)).Inc()
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			var zero T
			return zero, err
		}
		existing, ok := are.ExistingCollector.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return existing, nil
	}
	return col, nil
}
