// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"io"
)

type rlReader struct {
	ctx    context.Context
	rc     io.ReadCloser
	lim    *Limiter
	client string
}

// NewReader wraps rc so that every Read takes permits for the bytes
// it asks for from the limiter, on behalf of the client.
func NewReader(ctx context.Context, lim *Limiter, clientID string, rc io.ReadCloser) io.ReadCloser {
	if lim == nil || !lim.Enabled() {
		return rc
	}
	return &rlReader{
		ctx:    ctx,
		rc:     rc,
		lim:    lim,
		client: clientID,
	}
}

// Read implements io.Reader with rate limiting.
//
// Permits are acquired BEFORE performing the read, for the requested
// size capped at the largest chunk the limiter grants at once. If the
// read returns fewer bytes, the permits for the full chunk are still
// consumed.
func (r *rlReader) Read(p []byte) (int, error) {
	chunk := int64(len(p))
	if max := r.lim.MaxChunk(); chunk > max {
		chunk = max
	}

	if err := r.lim.Acquire(r.ctx, r.client, chunk); err != nil {
		return 0, err
	}

	return r.rc.Read(p[:chunk])
}

func (r *rlReader) Close() error {
	return r.rc.Close()
}
