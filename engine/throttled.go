// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package engine

import (
	"context"
	"io"

	"github.com/go-core-stack/throttle/gate"
)

// Throttled wraps an engine, admitting the bounded work operations
// through the SyncOperation gate. Uploads and downloads are passed
// through, holding an admission slot for the whole duration of a
// large transfer would starve the gate, they are throttled per chunk
// by the byte rate limiter instead.
type Throttled struct {
	inner Engine
	gate  *gate.Gate
}

var _ Engine = &Throttled{}

// NewThrottled wraps inner, admitting its operations through g.
func NewThrottled(inner Engine, g *gate.Gate) *Throttled {
	return &Throttled{
		inner: inner,
		gate:  g,
	}
}

// Inner returns the wrapped engine.
func (t *Throttled) Inner() Engine {
	return t.inner
}

// run fn as sync operation, leaving the gate on every exit path
func gated[T any](g *gate.Gate, fn func() (T, error)) (T, error) {
	var res T
	err := g.Do(gate.SyncOperation, func() error {
		var err error
		res, err = fn()
		return err
	})
	return res, err
}

// ListFolders implements Engine.
func (t *Throttled) ListFolders(ctx context.Context) ([]Folder, error) {
	return gated(t.gate, func() ([]Folder, error) {
		return t.inner.ListFolders(ctx)
	})
}

// DiffFolders implements Engine.
func (t *Throttled) DiffFolders(ctx context.Context, known []Folder) (*FolderDiff, error) {
	return gated(t.gate, func() (*FolderDiff, error) {
		return t.inner.DiffFolders(ctx, known)
	})
}

// ListFiles implements Engine.
func (t *Throttled) ListFiles(ctx context.Context, folder string) ([]File, error) {
	return gated(t.gate, func() ([]File, error) {
		return t.inner.ListFiles(ctx, folder)
	})
}

// DiffFiles implements Engine.
func (t *Throttled) DiffFiles(ctx context.Context, folder string, known []File) (*FileDiff, error) {
	return gated(t.gate, func() (*FileDiff, error) {
		return t.inner.DiffFiles(ctx, folder, known)
	})
}

// Quota implements Engine.
func (t *Throttled) Quota(ctx context.Context) (*Quota, error) {
	return gated(t.gate, func() (*Quota, error) {
		return t.inner.Quota(ctx)
	})
}

// Metadata implements Engine.
func (t *Throttled) Metadata(ctx context.Context, folder, name string) (*File, error) {
	return gated(t.gate, func() (*File, error) {
		return t.inner.Metadata(ctx, folder, name)
	})
}

// Upload implements Engine, not gated.
func (t *Throttled) Upload(ctx context.Context, folder, name string, r io.Reader) (*File, error) {
	return t.inner.Upload(ctx, folder, name, r)
}

// Download implements Engine, not gated.
func (t *Throttled) Download(ctx context.Context, folder, name string) (io.ReadCloser, *File, error) {
	return t.inner.Download(ctx, folder, name)
}
