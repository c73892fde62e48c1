package domain

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Escalator decides, on each fused tier, whether an alert must fire.
//
// Firing is edge-triggered: a danger tier fires only when it strictly exceeds
// the tier the last alert fired for, and the all-clear fires only on a return
// to Dry from a danger tier. A global cooldown enforces a minimum interval
// between any two fired alerts; a crossing suppressed by the cooldown is
// dropped, never queued.
//
// Not safe for concurrent use; the control loop is the only caller.
type Escalator struct {
	clock    clockwork.Clock
	cooldown time.Duration
	station  string

	lastFiredTier Tier
	lastFireTime  time.Time // zero until the first fire
}

// NewEscalator starts with {Dry, never-fired}, so the very first danger
// crossing is never cooldown-suppressed.
func NewEscalator(cooldown time.Duration, station string, clock clockwork.Clock) *Escalator {
	return &Escalator{
		clock:    clock,
		cooldown: cooldown,
		station:  station,
	}
}

// LastFiredTier returns the tier of the most recently fired alert.
func (e *Escalator) LastFiredTier() Tier { return e.lastFiredTier }

// Evaluate applies the escalation rules to one fused tier. It returns the
// alert to broadcast, or nil when nothing fires this cycle. suppressed is
// true when a qualifying crossing was dropped by the cooldown window; the
// caller surfaces that, but the event itself is gone.
func (e *Escalator) Evaluate(tier Tier) (ev *AlertEvent, suppressed bool) {
	var candidate *AlertEvent

	switch {
	case tier == TierFlashFlood && e.lastFiredTier < TierFlashFlood:
		candidate = e.event(TierFlashFlood, CategoryFlashFlood)
	case tier == TierWatch && e.lastFiredTier < TierWatch:
		candidate = e.event(TierWatch, CategoryWatch)
	case tier == TierAdvisory && e.lastFiredTier < TierAdvisory:
		candidate = e.event(TierAdvisory, CategoryAdvisory)
	case tier == TierDry && e.lastFiredTier > TierDry:
		candidate = e.event(TierDry, CategoryAllClear)
	}

	if candidate == nil {
		return nil, false
	}

	now := e.clock.Now()
	if !e.lastFireTime.IsZero() && now.Sub(e.lastFireTime) < e.cooldown {
		return nil, true
	}

	e.lastFiredTier = tier
	e.lastFireTime = now
	return candidate, false
}

func (e *Escalator) event(tier Tier, cat Category) *AlertEvent {
	return &AlertEvent{
		Tier:     tier,
		Category: cat,
		Message:  ComposeMessage(cat, e.station),
	}
}

// ComposeMessage renders the single-part plain-text SMS body for a category.
// Bodies stay well inside the 160-character GSM-7 limit so no message is ever
// split into a multi-part SMS.
func ComposeMessage(cat Category, station string) string {
	switch cat {
	case CategoryAdvisory:
		return fmt.Sprintf("AGOS %s: FLOOD ADVISORY. Water at 10in and rising. Monitor updates and prepare to move valuables.", station)
	case CategoryWatch:
		return fmt.Sprintf("AGOS %s: FLOOD WATCH. Water at 19in (knee deep). Prepare for possible evacuation.", station)
	case CategoryFlashFlood:
		return fmt.Sprintf("AGOS %s: FLASH FLOOD. Water at 37in (waist deep) and rising fast. EVACUATE to higher ground NOW.", station)
	default:
		return fmt.Sprintf("AGOS %s: ALL CLEAR. Water has receded below advisory level.", station)
	}
}
