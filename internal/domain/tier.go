package domain

import (
	"fmt"
	"time"
)

// Tier is the fused water-level classification. Values are inches of water
// depth at the gauge post, which makes tier comparisons ordinal.
type Tier int

const (
	TierDry        Tier = 0
	TierAdvisory   Tier = 10
	TierWatch      Tier = 19
	TierFlashFlood Tier = 37
)

// String returns the human-readable tier name used in logs and telemetry.
func (t Tier) String() string {
	switch t {
	case TierDry:
		return "dry"
	case TierAdvisory:
		return "advisory"
	case TierWatch:
		return "watch"
	case TierFlashFlood:
		return "flash-flood"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Category identifies the kind of alert carried by an AlertEvent. It is the
// value reported back to the coordination server and accepted from it on
// externally commanded broadcasts.
type Category string

const (
	CategoryAdvisory   Category = "flood-advisory"
	CategoryWatch      Category = "flood-watch"
	CategoryFlashFlood Category = "flash-flood"
	CategoryAllClear   Category = "all-clear"
)

// ParseCategory validates a category string from the coordination server.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryAdvisory, CategoryWatch, CategoryFlashFlood, CategoryAllClear:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown alert category %q", s)
}

// Tier returns the tier a category corresponds to. Commanded broadcasts carry
// only a category, so the tier is recovered from it for logging and metrics.
func (c Category) Tier() Tier {
	switch c {
	case CategoryAdvisory:
		return TierAdvisory
	case CategoryWatch:
		return TierWatch
	case CategoryFlashFlood:
		return TierFlashFlood
	default:
		return TierDry
	}
}

// Reading is one sampling cycle's worth of detector flags, indexed low to
// high: half-knee, knee, waist.
type Reading [3]bool

// AlertEvent is a single alert ready for broadcast. Created by the Escalator
// (or received as an external command), consumed immediately by the broadcast
// sequencer, and not persisted beyond the current cycle.
type AlertEvent struct {
	Tier     Tier
	Category Category
	Message  string
}

// Telemetry is the station status snapshot pushed to the coordination server
// each reporting interval.
type Telemetry struct {
	Tier              Tier      `json:"-"`
	TierLabel         string    `json:"tier"`
	TierInches        int       `json:"tier_inches"`
	Sensors           Reading   `json:"sensors"`
	ModemReady        bool      `json:"modem_ready"`
	NetworkRegistered bool      `json:"network_registered"`
	SignalQuality     int       `json:"signal_quality"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewTelemetry fills the derived tier fields so callers cannot let the label
// and the numeric value drift apart.
func NewTelemetry(tier Tier, sensors Reading, modemReady, registered bool, signalQuality int, now time.Time) Telemetry {
	return Telemetry{
		Tier:              tier,
		TierLabel:         tier.String(),
		TierInches:        int(tier),
		Sensors:           sensors,
		ModemReady:        modemReady,
		NetworkRegistered: registered,
		SignalQuality:     signalQuality,
		Timestamp:         now,
	}
}
