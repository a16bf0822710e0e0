// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"net/http"
)

type rlWriter struct {
	ctx    context.Context
	w      http.ResponseWriter
	lim    *Limiter
	client string
}

// NewResponseWriter wraps w so that every Write takes permits from the
// limiter on behalf of the client before the bytes go out.
func NewResponseWriter(ctx context.Context, lim *Limiter, clientID string, w http.ResponseWriter) http.ResponseWriter {
	if lim == nil || !lim.Enabled() {
		return w
	}
	return &rlWriter{
		ctx:    ctx,
		w:      w,
		lim:    lim,
		client: clientID,
	}
}

func (w *rlWriter) Header() http.Header {
	return w.w.Header()
}

func (w *rlWriter) WriteHeader(code int) {
	w.w.WriteHeader(code)
}

// Write implements http.ResponseWriter.Write with rate limiting.
//
// The method writes data in chunks no larger than the limiter's
// largest grant, acquiring permits before each chunk. If a chunk
// write fails partway through, permits for the full chunk are
// consumed even though fewer bytes were written.
func (w *rlWriter) Write(p []byte) (int, error) {
	written := 0
	maxChunk := int(w.lim.MaxChunk())
	for written < len(p) {
		chunk := len(p) - written
		if chunk > maxChunk {
			chunk = maxChunk
		}
		err := w.lim.Acquire(w.ctx, w.client, int64(chunk))
		if err != nil {
			return written, err
		}
		n, err := w.w.Write(p[written : written+chunk])
		written += n
		if err != nil {
			return written, err
		}
		// flush to keep the wire paced with the permits
		if f, ok := w.w.(http.Flusher); ok {
			f.Flush()
		}
	}
	return written, nil
}

// Flush implements http.Flusher when the wrapped writer does.
func (w *rlWriter) Flush() {
	if f, ok := w.w.(http.Flusher); ok {
		f.Flush()
	}
}
