// Package rate provides byte rate limiting for file transfers.
//
// # Overview
//
// A Limiter owns one global Budget and a Budget per client, each one a
// token bucket holding at most one second worth of bytes. Callers move
// bytes in chunks and take permits for every chunk, either blocking
// (Acquire) or not (TryAcquire). Permits are only given back by Refill,
// which runs on a fixed cadence (DefaultTicksPerSecond) and releases
// capacity/ticks permits per budget and tick.
//
// # Scopes
//
//   - global: shared by all clients, limits the process as a whole
//   - client: one budget per client id, created on first use and
//     dropped by Refill once it is full again with nobody waiting
//
// A client chunk is charged to its client budget first and to the
// global budget second. Permits taken from the client budget are given
// back when the global budget refuses or the wait on it is cancelled.
//
// # Configuration
//
// Byte rates are configured as strings with an optional binary unit,
// see ParseByteRate:
//
//	ParseByteRate("10MB")  // 10 * 1024 * 1024
//	ParseByteRate("500kb") // 500 * 1024
//	ParseByteRate("1000")  // 1000
//	ParseByteRate("")      // Unlimited
//
// # Streaming
//
// NewReader and NewResponseWriter throttle an io.ReadCloser and an
// http.ResponseWriter. Permits are taken BEFORE the I/O happens, so a
// short read still consumes the permits of the full chunk.
//
//	lim := rate.NewLimiter(rate.LimiterConfig{GlobalRate: 10 << 20, PerClientRate: 1 << 20})
//	body := rate.NewReader(ctx, lim, clientID, r.Body)
//	defer body.Close()
package rate
