// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-core-stack/throttle/engine"
	"github.com/go-core-stack/throttle/gate"
	"github.com/go-core-stack/throttle/rate"
	"github.com/go-core-stack/throttle/session"
	"github.com/go-core-stack/throttle/timer"
)

// engine holding downloads open until released
type blockingEngine struct {
	*engine.Memory
	entered chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Download(ctx context.Context, folder, name string) (io.ReadCloser, *engine.File, error) {
	e.entered <- struct{}{}
	<-e.release
	return e.Memory.Download(ctx, folder, name)
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, body)
	if err := session.SetHeader(r, &session.Info{SessionID: "alice"}); err != nil {
		t.Fatalf("failed to set session: %s", err)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func startRefill(t *testing.T, lim *rate.Limiter) {
	t.Helper()
	p := timer.NewPeriodic(lim.TickInterval(), lim.Refill)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("failed to start refill: %s", err)
	}
	t.Cleanup(p.Stop)
}

func TestUploadDownload(t *testing.T) {
	h := NewRouter(engine.NewMemory(0), nil, nil, Options{})

	w := do(t, h, http.MethodPut, "/folders/docs/files/a.txt", strings.NewReader("hello world"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload failed with %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get(RevisionHeader) == "" {
		t.Errorf("expected revision header on upload")
	}
	f := &engine.File{}
	if err := json.Unmarshal(w.Body.Bytes(), f); err != nil {
		t.Fatalf("invalid upload response: %s", err)
	}
	if f.Size != 11 {
		t.Errorf("expected 11 bytes stored, got %d", f.Size)
	}

	w = do(t, h, http.MethodGet, "/folders/docs/files/a.txt", nil)
	if w.Code != http.StatusOK || w.Body.String() != "hello world" {
		t.Fatalf("download failed with %d: %q", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Length") != "11" {
		t.Errorf("unexpected content length %q", w.Header().Get("Content-Length"))
	}

	w = do(t, h, http.MethodGet, "/folders/docs/files/missing.txt", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing file, got %d", w.Code)
	}
}

func TestSyncRoutes(t *testing.T) {
	mem := engine.NewMemory(0)
	h := NewRouter(mem, nil, nil, Options{})
	do(t, h, http.MethodPut, "/folders/docs/files/a.txt", strings.NewReader("a"))
	do(t, h, http.MethodPut, "/folders/docs/files/b.txt", strings.NewReader("b"))

	w := do(t, h, http.MethodGet, "/folders/", nil)
	folders := []engine.Folder{}
	if err := json.Unmarshal(w.Body.Bytes(), &folders); err != nil || len(folders) != 1 {
		t.Fatalf("unexpected folder listing %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/folders/docs/files/", nil)
	files := []engine.File{}
	if err := json.Unmarshal(w.Body.Bytes(), &files); err != nil || len(files) != 2 {
		t.Fatalf("unexpected file listing %d: %s", w.Code, w.Body.String())
	}

	known, _ := json.Marshal(files[:1])
	w = do(t, h, http.MethodPost, "/folders/docs/files/diff", bytes.NewReader(known))
	diff := &engine.FileDiff{}
	if err := json.Unmarshal(w.Body.Bytes(), diff); err != nil {
		t.Fatalf("invalid diff response %d: %s", w.Code, w.Body.String())
	}
	want := &engine.FileDiff{Added: []engine.File{{Folder: "docs", Name: "b.txt", Size: 1}}}
	if d := cmp.Diff(want, diff, cmpopts.IgnoreFields(engine.File{}, "Revision", "Modified")); d != "" {
		t.Errorf("diff mismatch (-want +got):\n%s", d)
	}

	w = do(t, h, http.MethodPost, "/folders/diff", strings.NewReader("not json"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/folders/docs/files/a.txt/metadata", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected metadata, got %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/quota", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected quota, got %d", w.Code)
	}
}

func TestFileTransferGate(t *testing.T) {
	mem := engine.NewMemory(0)
	eng := &blockingEngine{
		Memory:  mem,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	g := gate.New(gate.Limits{MaxFileTransfers: 1, MaxSyncOperations: gate.Unlimited}, nil)
	h := NewRouter(eng, nil, g, Options{RetryAfter: 1500 * time.Millisecond})

	if w := do(t, h, http.MethodPut, "/folders/docs/files/a.txt", strings.NewReader("a")); w.Code != http.StatusCreated {
		t.Fatalf("upload failed with %d", w.Code)
	}

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- do(t, h, http.MethodGet, "/folders/docs/files/a.txt", nil)
	}()
	<-eng.entered

	w := do(t, h, http.MethodPut, "/folders/docs/files/b.txt", strings.NewReader("b"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while saturated, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "2" {
		t.Errorf("expected Retry-After 2, got %q", w.Header().Get("Retry-After"))
	}

	// sync operations are not file transfers
	if w := do(t, h, http.MethodGet, "/folders/docs/files/a.txt/metadata", nil); w.Code != http.StatusOK {
		t.Errorf("metadata must not be refused by the file transfer gate, got %d", w.Code)
	}

	close(eng.release)
	if w := <-done; w.Code != http.StatusOK {
		t.Errorf("admitted download failed with %d", w.Code)
	}
	if got := g.Active(gate.FileTransfer); got != 0 {
		t.Errorf("expected gate to be balanced, got %d", got)
	}
	if w := do(t, h, http.MethodPut, "/folders/docs/files/b.txt", strings.NewReader("b")); w.Code != http.StatusCreated {
		t.Errorf("expected upload to be admitted again, got %d", w.Code)
	}
}

func TestThrottledSyncRoutes(t *testing.T) {
	g := gate.New(gate.Limits{MaxFileTransfers: gate.Unlimited, MaxSyncOperations: 1}, nil)
	// saturate the sync operations
	_ = g.Enter(gate.SyncOperation)
	defer g.Leave(gate.SyncOperation)

	h := NewRouter(engine.NewThrottled(engine.NewMemory(0), g), nil, g, Options{})
	w := do(t, h, http.MethodGet, "/quota", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 from the throttled engine, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("expected default Retry-After, got %q", w.Header().Get("Retry-After"))
	}

	// transfers are not sync operations
	w = do(t, h, http.MethodPut, "/folders/docs/files/a.txt", strings.NewReader("a"))
	if w.Code != http.StatusCreated {
		t.Errorf("expected upload to pass through, got %d", w.Code)
	}
}

func TestRateLimitedTransfers(t *testing.T) {
	lim := rate.NewLimiter(rate.LimiterConfig{PerClientRate: 1000})
	startRefill(t, lim)
	h := NewRouter(engine.NewMemory(0), lim, nil, Options{})

	data := bytes.Repeat([]byte("x"), 2500)
	start := time.Now()
	w := do(t, h, http.MethodPut, "/folders/docs/files/big.bin", bytes.NewReader(data))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload failed with %d: %s", w.Code, w.Body.String())
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("upload of 2500 bytes at 1000 B/s took only %v", elapsed)
	}

	// give the client budget time to fill up again
	time.Sleep(time.Second)

	start = time.Now()
	w = do(t, h, http.MethodGet, "/folders/docs/files/big.bin", nil)
	if w.Code != http.StatusOK || w.Body.Len() != 2500 {
		t.Fatalf("download failed with %d, %d bytes", w.Code, w.Body.Len())
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("download of 2500 bytes at 1000 B/s took only %v", elapsed)
	}
}
