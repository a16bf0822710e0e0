// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package transfer serves the sync engine over http.
//
// Uploads and downloads are admitted through the FileTransfer gate for
// the duration of the request and move their bytes through the rate
// limiter, keyed by the session of the caller. The other routes call
// the engine as is, wrap it in engine.Throttled to gate them.
package transfer

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	xrate "golang.org/x/time/rate"

	"github.com/go-core-stack/throttle/engine"
	"github.com/go-core-stack/throttle/gate"
	"github.com/go-core-stack/throttle/rate"
	"github.com/go-core-stack/throttle/session"
)

// DefaultRetryAfter is advertised to clients refused by the gate
const DefaultRetryAfter = time.Second

// Options of the router
type Options struct {
	// advertised in the Retry-After header of refused requests,
	// DefaultRetryAfter if not set
	RetryAfter time.Duration
}

type handler struct {
	eng        engine.Engine
	lim        *rate.Limiter
	gate       *gate.Gate
	retryAfter time.Duration

	// keeps failing transfers from flooding the log
	errLog xrate.Sometimes
}

// NewRouter returns the http handler serving eng. A nil limiter does
// not limit the byte rate, a nil gate admits every transfer.
func NewRouter(eng engine.Engine, lim *rate.Limiter, g *gate.Gate, opts Options) http.Handler {
	if g == nil {
		g = gate.New(gate.UnlimitedLimits, nil)
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = DefaultRetryAfter
	}
	h := &handler{
		eng:        eng,
		lim:        lim,
		gate:       g,
		retryAfter: opts.RetryAfter,
		errLog:     xrate.Sometimes{Interval: 5 * time.Second},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(session.Middleware)

	r.Get("/quota", h.quota)
	r.Route("/folders", func(r chi.Router) {
		r.Get("/", h.listFolders)
		r.Post("/diff", h.diffFolders)
		r.Route("/{folder}/files", func(r chi.Router) {
			r.Get("/", h.listFiles)
			r.Post("/diff", h.diffFiles)
			r.Get("/{file}/metadata", h.metadata)
			r.With(h.admit).Get("/{file}", h.download)
			r.With(h.admit).Put("/{file}", h.upload)
		})
	})
	return r
}
