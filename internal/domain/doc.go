// Package domain models the water-level alerting rules for an AGOS
// flood monitoring station.
//
// # Sensors
//
// A station carries three break-beam detectors mounted at increasing heights
// on the gauge post: half-knee, knee, and waist. Each detector reports a
// single boolean per sampling cycle: true when its beam is interrupted by
// water. Readings are transient; no history is kept.
//
// # Tiers
//
// The three booleans fuse into one ordinal tier, valued in inches of water
// depth at the gauge:
//
//	Dry        = 0
//	Advisory   = 10  (half-knee submerged)
//	Watch      = 19  (knee submerged)
//	FlashFlood = 37  (all three submerged)
//
// The fusion rule privileges the middle (knee) sensor as the most trustworthy
// and requires agreement from both neighbors before classifying FlashFlood,
// so a single faulty detector cannot trigger the most severe tier on its own.
// The branch order in [FuseTier] is load-bearing and must not be rearranged.
//
// # Escalation
//
// Alerts are edge-triggered: an [AlertEvent] is emitted only when the fused
// tier rises above the last tier an alert fired for, or when the station
// returns to Dry from any danger tier (the all-clear). Sustained high water
// never repeats an alert. A global cooldown bounds the minimum interval
// between any two emitted alerts; a qualifying crossing inside the cooldown
// window is dropped, not queued.
package domain
