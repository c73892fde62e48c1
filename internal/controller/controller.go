// Package controller runs the station's single control loop: sample sensors,
// fuse, evaluate escalation, and when an alert fires run the broadcast
// synchronously to completion before sampling resumes. Sampling is suspended
// for the duration of an active broadcast.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/broadcast"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/modem"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/observability"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/sensor"
)

// Modem is the session driver surface the controller needs.
type Modem interface {
	Initialize(ctx context.Context) error
	State() modem.State
	Status() modem.Session
}

// Gateway is the coordination server boundary.
type Gateway interface {
	FetchRecipients(ctx context.Context) ([]broadcast.Recipient, error)
	PollCommand(ctx context.Context) (*domain.AlertEvent, error)
	PushTelemetry(ctx context.Context, t domain.Telemetry) error
	PushResult(ctx context.Context, r broadcast.Result) error
}

// EventSink mirrors telemetry and results to the optional station event
// stream. Nil when the stream is disabled.
type EventSink interface {
	PublishTelemetry(ctx context.Context, t domain.Telemetry) error
	PublishResult(ctx context.Context, r broadcast.Result) error
}

// Intervals are the loop's periodic schedules.
type Intervals struct {
	Sample           time.Duration
	Telemetry        time.Duration
	CommandPoll      time.Duration
	RecipientRefresh time.Duration
}

// Controller owns the control loop state. Single goroutine; every modem and
// broadcast wait blocks the loop by construction, which also guarantees the
// recipient list is only replaced between broadcasts.
type Controller struct {
	sampler   sensor.Sampler
	escalator *domain.Escalator
	sequencer *broadcast.Sequencer
	directory *broadcast.Directory
	modem     Modem
	gateway   Gateway
	events    EventSink

	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	intervals Intervals

	ready       atomic.Bool
	lastReading domain.Reading
	lastTier    domain.Tier

	lastTelemetry time.Time
	lastPoll      time.Time
	lastRefresh   time.Time
}

// New wires a Controller. events may be nil.
func New(
	sampler sensor.Sampler,
	escalator *domain.Escalator,
	sequencer *broadcast.Sequencer,
	directory *broadcast.Directory,
	mdm Modem,
	gateway Gateway,
	events EventSink,
	intervals Intervals,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
) *Controller {
	return &Controller{
		sampler:   sampler,
		escalator: escalator,
		sequencer: sequencer,
		directory: directory,
		modem:     mdm,
		gateway:   gateway,
		events:    events,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		intervals: intervals,
	}
}

// CheckReadiness returns nil once the loop has completed at least one
// sampling cycle.
func (c *Controller) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("controller has not completed a sampling cycle yet")
	}
	return nil
}

// Run brings up the modem, primes the recipient list, and then drives the
// sampling loop until the context is cancelled. A failed modem bring-up is
// terminal for the modem subsystem but not for the loop: sampling, telemetry,
// and command polling continue, and every send attempt simply fails until an
// explicit restart.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.modem.Initialize(ctx); err != nil {
		c.logger.Error("modem bring-up failed; sms disabled until explicit restart", "error", err)
	}
	c.metrics.ModemState.Set(float64(c.modem.State()))

	c.refreshRecipients(ctx)
	c.lastRefresh = c.clock.Now()

	ticker := c.clock.NewTicker(c.intervals.Sample)
	defer ticker.Stop()

	c.logger.Info("control loop started", "sample_interval", c.intervals.Sample)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("control loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			c.runCycle(ctx)
		}
	}
}

var sensorPositions = [3]string{"low", "mid", "high"}

// runCycle is one pass of the loop: sample, fuse, escalate, broadcast if
// firing, then the periodic maintenance work.
func (c *Controller) runCycle(ctx context.Context) {
	reading, err := c.sampler.Sample(ctx)
	if err != nil {
		c.logger.Error("sensor sample failed", "error", err)
		return
	}
	tier := domain.FuseTier(reading)
	c.lastReading = reading
	c.lastTier = tier

	c.metrics.FusionTier.Set(float64(tier))
	for i, pos := range sensorPositions {
		v := 0.0
		if reading[i] {
			v = 1.0
		}
		c.metrics.SensorWet.WithLabelValues(pos).Set(v)
	}

	ev, suppressed := c.escalator.Evaluate(tier)
	if suppressed {
		// Known alerting gap: a crossing inside the cooldown window is
		// dropped outright, even if the tier kept rising. Surfaced loudly
		// instead of silently changing the behavior.
		c.metrics.AlertsSuppressed.Inc()
		c.logger.Warn("alert crossing suppressed by cooldown", "tier", tier.String())
	}
	if ev != nil {
		c.logger.Info("alert fired", "category", string(ev.Category), "tier", ev.Tier.String())
		c.metrics.AlertsFired.WithLabelValues(string(ev.Category)).Inc()
		c.broadcast(ctx, *ev)
	}

	c.maintenance(ctx)

	c.metrics.ModemState.Set(float64(c.modem.State()))
	c.metrics.CyclesTotal.Inc()
	c.metrics.LastCycleTime.Set(float64(c.clock.Now().Unix()))
	c.logger.Debug("cycle complete", "tier", tier.String())
	c.ready.Store(true)
}

// maintenance runs the slower periodic work: telemetry push, command poll,
// and recipient refresh. Each keeps its own schedule against the clock.
func (c *Controller) maintenance(ctx context.Context) {
	now := c.clock.Now()

	if now.Sub(c.lastTelemetry) >= c.intervals.Telemetry {
		c.lastTelemetry = now
		c.pushTelemetry(ctx)
	}
	if now.Sub(c.lastPoll) >= c.intervals.CommandPoll {
		c.lastPoll = now
		c.pollCommand(ctx)
	}
	if now.Sub(c.lastRefresh) >= c.intervals.RecipientRefresh {
		c.lastRefresh = now
		c.refreshRecipients(ctx)
	}
}

// broadcast snapshots the recipient list, runs the sequencer to completion,
// and reports the outcome. Synchronous: sampling is suspended until done.
func (c *Controller) broadcast(ctx context.Context, ev domain.AlertEvent) {
	snap := c.directory.Snapshot()
	result := c.sequencer.Run(ctx, ev, snap)

	if err := c.gateway.PushResult(ctx, result); err != nil {
		c.metrics.RemoteRequests.WithLabelValues("result", "error").Inc()
		c.logger.Warn("result push failed", "error", err)
	} else {
		c.metrics.RemoteRequests.WithLabelValues("result", "success").Inc()
	}
	if c.events != nil {
		if err := c.events.PublishResult(ctx, result); err != nil {
			c.logger.Warn("result event publish failed", "error", err)
		}
	}
}

func (c *Controller) pushTelemetry(ctx context.Context) {
	status := c.modem.Status()
	t := domain.NewTelemetry(c.lastTier, c.lastReading, status.Ready, status.NetworkRegistered, status.SignalQuality, c.clock.Now())

	if err := c.gateway.PushTelemetry(ctx, t); err != nil {
		c.metrics.RemoteRequests.WithLabelValues("telemetry", "error").Inc()
		c.logger.Warn("telemetry push failed", "error", err)
	} else {
		c.metrics.RemoteRequests.WithLabelValues("telemetry", "success").Inc()
	}
	if c.events != nil {
		if err := c.events.PublishTelemetry(ctx, t); err != nil {
			c.logger.Warn("telemetry event publish failed", "error", err)
		}
	}
}

// pollCommand asks the server for an externally-triggered broadcast, which
// bypasses fusion and the escalation state machine entirely.
func (c *Controller) pollCommand(ctx context.Context) {
	ev, err := c.gateway.PollCommand(ctx)
	if err != nil {
		c.metrics.RemoteRequests.WithLabelValues("command", "error").Inc()
		c.logger.Warn("command poll failed", "error", err)
		return
	}
	c.metrics.RemoteRequests.WithLabelValues("command", "success").Inc()
	if ev == nil {
		return
	}
	c.logger.Info("externally commanded broadcast", "category", string(ev.Category))
	c.metrics.AlertsFired.WithLabelValues(string(ev.Category)).Inc()
	c.broadcast(ctx, *ev)
}

// refreshRecipients replaces the directory wholesale on success and leaves
// it untouched on any failure.
func (c *Controller) refreshRecipients(ctx context.Context) {
	recipients, err := c.gateway.FetchRecipients(ctx)
	if err != nil {
		c.metrics.RemoteRequests.WithLabelValues("recipients", "error").Inc()
		c.logger.Warn("recipient fetch failed; keeping current list", "error", err)
		return
	}
	c.metrics.RemoteRequests.WithLabelValues("recipients", "success").Inc()
	c.directory.Replace(recipients)
	c.logger.Info("recipient list refreshed", "count", len(c.directory.Snapshot().Recipients))
}
