// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

const (
	// overall bytes per second, number with optional unit suffix
	// B, KB, MB or GB, absent means unlimited
	RateOverallKey = "throttle.rate.overall"

	// bytes per second for every client session, same format as
	// the overall rate
	RatePerClientKey = "throttle.rate.perclient"

	// refill ticks per second of the rate limiter
	RateTicksKey = "throttle.rate.ticks"

	// maximum concurrent file transfers, -1 or absent is unlimited
	MaxFileTransfersKey = "throttle.max.filetransfers"

	// maximum concurrent synchronization operations, -1 or absent
	// is unlimited
	MaxSyncOperationsKey = "throttle.max.syncoperations"
)

// Keys lists all the keys known to the throttling core.
var Keys = []string{
	RateOverallKey,
	RatePerClientKey,
	RateTicksKey,
	MaxFileTransfersKey,
	MaxSyncOperationsKey,
}

// IsRateKey reports whether the key configures the rate limiter,
// such keys take effect only when the limiter is created.
func IsRateKey(key string) bool {
	switch key {
	case RateOverallKey, RatePerClientKey, RateTicksKey:
		return true
	}
	return false
}

// known keys as reconciler keys
func allKeys() []any {
	keys := make([]any, 0, len(Keys))
	for _, k := range Keys {
		keys = append(keys, k)
	}
	return keys
}
