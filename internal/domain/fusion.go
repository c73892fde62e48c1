package domain

// FuseTier reduces one cycle's detector flags into a single tier.
//
// The middle (knee) detector is treated as the most reliable witness: when it
// trips, the station is at least at Watch, and only corroboration from both
// the low and high detectors upgrades the classification to FlashFlood. The
// low detector alone yields Advisory. Anything else is Dry; there is no
// error tier, fusion always classifies.
//
// The branch order must be preserved: reordering changes how disagreeing
// detectors are resolved.
func FuseTier(r Reading) Tier {
	if r[1] {
		if r[0] && r[2] {
			return TierFlashFlood
		}
		return TierWatch
	}
	if r[0] {
		return TierAdvisory
	}
	return TierDry
}
