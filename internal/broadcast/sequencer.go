package broadcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/observability"
)

// Sender submits one SMS. Implemented by the modem driver.
type Sender interface {
	SendSMS(ctx context.Context, number, text string) error
}

// Result is the aggregate outcome of one broadcast run. Immutable once
// returned; success + failure always equals the snapshot size.
type Result struct {
	Category  domain.Category
	Succeeded int
	Failed    int
	Timestamp time.Time
}

// Sequencer walks a recipient snapshot and sends one alert to each entry.
type Sequencer struct {
	sender  Sender
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	spacing time.Duration // pause between consecutive recipients
}

// NewSequencer creates a Sequencer. spacing is inserted between consecutive
// sends to respect carrier rate limits.
func NewSequencer(sender Sender, spacing time.Duration, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Sequencer {
	return &Sequencer{
		sender:  sender,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		spacing: spacing,
	}
}

// Run attempts the alert against every recipient in the snapshot, exactly
// once each. A single recipient's failure never halts the loop; an empty
// snapshot returns a zero/zero result with no send attempts. The run is
// synchronous and uncancellable per recipient: once a send begins it runs to
// its own timeout before the next recipient is considered.
func (s *Sequencer) Run(ctx context.Context, ev domain.AlertEvent, snap Snapshot) Result {
	result := Result{Category: ev.Category, Timestamp: s.clock.Now()}
	if len(snap.Recipients) == 0 {
		s.logger.Warn("broadcast skipped: no recipients", "category", string(ev.Category))
		return result
	}

	s.logger.Info("broadcast starting",
		"category", string(ev.Category),
		"recipients", len(snap.Recipients),
		"list_version", snap.Version,
	)
	start := s.clock.Now()

	for i, r := range snap.Recipients {
		if i > 0 {
			s.wait(ctx)
		}
		if err := s.sender.SendSMS(ctx, string(r), ev.Message); err != nil {
			result.Failed++
			s.metrics.SMSFailed.Inc()
			s.logger.Warn("sms send failed", "recipient", string(r), "error", err)
			continue
		}
		result.Succeeded++
		s.metrics.SMSSent.Inc()
		s.logger.Info("sms sent", "recipient", string(r))
	}

	s.metrics.BroadcastDuration.Observe(s.clock.Since(start).Seconds())
	s.logger.Info("broadcast finished",
		"category", string(ev.Category),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result
}

func (s *Sequencer) wait(ctx context.Context) {
	if s.spacing <= 0 {
		return
	}
	timer := s.clock.NewTimer(s.spacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.Chan():
	}
}
