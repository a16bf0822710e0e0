// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package transfer

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/engine"
	"github.com/go-core-stack/throttle/errors"
	"github.com/go-core-stack/throttle/gate"
	"github.com/go-core-stack/throttle/rate"
	"github.com/go-core-stack/throttle/session"
)

const (
	// revision of the file carried on uploads and downloads
	RevisionHeader = "X-Revision"

	contentTypeJSON = "application/json"
)

// admit counts the request in as file transfer for its whole duration
func (h *handler) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.gate.Enter(gate.FileTransfer)
		defer h.gate.Leave(gate.FileTransfer)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// fail responds with the status matching the error, refused requests
// get a Retry-After hint
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.HTTPStatus(err)
	if errors.IsCapacityExceeded(err) {
		secs := int(math.Ceil(h.retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	} else if code >= http.StatusInternalServerError {
		h.errLog.Do(func() {
			klog.Errorf("transfer: %s %s (request %s) failed: %s", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
		})
	}
	http.Error(w, err.Error(), code)
}

func (h *handler) respond(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.V(2).Infof("transfer: failed to write response of %s: %s", r.URL.Path, err)
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return errors.Wrapf(errors.InvalidArgument, "invalid request body: %s", err)
	}
	return nil
}

func (h *handler) quota(w http.ResponseWriter, r *http.Request) {
	q, err := h.eng.Quota(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, q)
}

func (h *handler) listFolders(w http.ResponseWriter, r *http.Request) {
	list, err := h.eng.ListFolders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, list)
}

func (h *handler) diffFolders(w http.ResponseWriter, r *http.Request) {
	known := []engine.Folder{}
	if err := decode(r, &known); err != nil {
		h.fail(w, r, err)
		return
	}
	diff, err := h.eng.DiffFolders(r.Context(), known)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, diff)
}

func (h *handler) listFiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.eng.ListFiles(r.Context(), chi.URLParam(r, "folder"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, list)
}

func (h *handler) diffFiles(w http.ResponseWriter, r *http.Request) {
	known := []engine.File{}
	if err := decode(r, &known); err != nil {
		h.fail(w, r, err)
		return
	}
	diff, err := h.eng.DiffFiles(r.Context(), chi.URLParam(r, "folder"), known)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, diff)
}

func (h *handler) metadata(w http.ResponseWriter, r *http.Request) {
	f, err := h.eng.Metadata(r.Context(), chi.URLParam(r, "folder"), chi.URLParam(r, "file"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, f)
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc, f, err := h.eng.Download(ctx, chi.URLParam(r, "folder"), chi.URLParam(r, "file"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.Header().Set(RevisionHeader, strconv.FormatUint(f.Revision, 10))
	w.WriteHeader(http.StatusOK)

	out := rate.NewResponseWriter(ctx, h.lim, session.ClientID(ctx), w)
	if _, err := io.Copy(out, rc); err != nil {
		// headers are gone already, the client sees a short body
		klog.V(2).Infof("transfer: download of %s/%s aborted: %s", f.Folder, f.Name, err)
	}
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := rate.NewReader(ctx, h.lim, session.ClientID(ctx), r.Body)
	defer body.Close()

	f, err := h.eng.Upload(ctx, chi.URLParam(r, "folder"), chi.URLParam(r, "file"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set(RevisionHeader, strconv.FormatUint(f.Revision, 10))
	h.respond(w, r, http.StatusCreated, f)
}
