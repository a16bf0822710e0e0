package rate

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-core-stack/throttle/errors"
)

// startRefill drives the limiter the way the service does
func startRefill(t *testing.T, l *Limiter) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		ticker := time.NewTicker(l.TickInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Refill()
			}
		}
	}()
}

func TestNewReaderDisabledLimiter(t *testing.T) {
	rc := io.NopCloser(strings.NewReader("test"))
	if got := NewReader(context.Background(), nil, "alice", rc); got != rc {
		t.Fatalf("expected reader to be returned unwrapped for nil limiter")
	}
	l := NewLimiter(LimiterConfig{})
	if got := NewReader(context.Background(), l, "alice", rc); got != rc {
		t.Fatalf("expected reader to be returned unwrapped for disabled limiter")
	}
}

// TestRateLimitedReader verifies rate limiting behavior for readers.
func TestRateLimitedReader(t *testing.T) {
	l := NewLimiter(LimiterConfig{GlobalRate: 1000}) // 1000 bytes/sec
	startRefill(t, l)

	data := bytes.Repeat([]byte("a"), 1500)
	r := NewReader(context.Background(), l, "alice", io.NopCloser(bytes.NewReader(data)))
	defer r.Close()

	start := time.Now()
	buf := make([]byte, 1500)
	n, err := io.ReadFull(r, buf)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 1500 {
		t.Fatalf("expected to read 1500 bytes, got %d", n)
	}

	// first 1000 bytes come from the full bucket, the remaining 500
	// need two ticks of 250 bytes each
	if elapsed < 400*time.Millisecond {
		t.Fatalf("read completed too fast (%v), rate limiting likely broken", elapsed)
	}
}

// TestRateLimitedReaderChunking verifies reads larger than the
// limiter's largest grant are split.
func TestRateLimitedReaderChunking(t *testing.T) {
	l := NewLimiter(LimiterConfig{GlobalRate: 1000, PerClientRate: 50})

	data := bytes.Repeat([]byte("a"), 200)
	r := NewReader(context.Background(), l, "alice", io.NopCloser(bytes.NewReader(data)))
	defer r.Close()

	buf := make([]byte, 100)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n > 50 {
		t.Fatalf("expected to read at most 50 bytes, got %d", n)
	}
}

// TestRateLimitedReaderContextCancellation verifies context cancellation.
func TestRateLimitedReaderContextCancellation(t *testing.T) {
	l := NewLimiter(LimiterConfig{GlobalRate: 10})
	if !l.TryAcquire("alice", 10) {
		t.Fatalf("expected to drain the budget")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := NewReader(ctx, l, "alice", io.NopCloser(strings.NewReader("test")))
	defer r.Close()

	cancel()

	buf := make([]byte, 4)
	_, err := r.Read(buf)
	if !errors.IsCanceled(err) {
		t.Fatalf("expected Canceled error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled cause, got %v", err)
	}
}

// TestRateLimitedHTTPResponseWriter verifies rate limiting for HTTP writers.
func TestRateLimitedHTTPResponseWriter(t *testing.T) {
	l := NewLimiter(LimiterConfig{GlobalRate: 1000, PerClientRate: 1000})
	startRefill(t, l)

	w := httptest.NewRecorder()
	rw := NewResponseWriter(context.Background(), l, "alice", w)

	data := bytes.Repeat([]byte("a"), 1500)
	start := time.Now()
	n, err := rw.Write(data)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != 1500 {
		t.Fatalf("expected to write 1500 bytes, got %d", n)
	}
	if elapsed < 400*time.Millisecond {
		t.Fatalf("write completed too fast (%v), rate limiting likely broken", elapsed)
	}
	if w.Body.Len() != 1500 {
		t.Fatalf("expected 1500 bytes in response body, got %d", w.Body.Len())
	}
	if !w.Flushed {
		t.Fatalf("expected chunks to be flushed")
	}
}

// TestRateLimitedHTTPResponseWriterChunking verifies writing chunks
// larger than the largest grant.
func TestRateLimitedHTTPResponseWriterChunking(t *testing.T) {
	l := NewLimiter(LimiterConfig{GlobalRate: 50})
	startRefill(t, l)

	w := httptest.NewRecorder()
	rw := NewResponseWriter(context.Background(), l, "alice", w)

	data := bytes.Repeat([]byte("a"), 80)
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != 80 {
		t.Fatalf("expected to write 80 bytes, got %d", n)
	}
	if w.Body.Len() != 80 {
		t.Fatalf("expected 80 bytes in response body, got %d", w.Body.Len())
	}
}

// TestRateLimitedHTTPResponseWriterContextCancellation verifies context cancellation.
func TestRateLimitedHTTPResponseWriterContextCancellation(t *testing.T) {
	l := NewLimiter(LimiterConfig{GlobalRate: 10})
	if !l.TryAcquire("alice", 10) {
		t.Fatalf("expected to drain the budget")
	}

	w := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	rw := NewResponseWriter(ctx, l, "alice", w)
	cancel()

	n, err := rw.Write([]byte("hello"))
	if !errors.IsCanceled(err) {
		t.Fatalf("expected Canceled error, got %v", err)
	}
	if n != 0 || w.Body.Len() != 0 {
		t.Fatalf("expected nothing written, got %d", n)
	}
}

// TestRateLimitedHTTPResponseWriterHeaders verifies header operations work.
func TestRateLimitedHTTPResponseWriterHeaders(t *testing.T) {
	l := NewLimiter(LimiterConfig{GlobalRate: 1000})

	w := httptest.NewRecorder()
	rw := NewResponseWriter(context.Background(), l, "alice", w)

	rw.Header().Set("Content-Type", "text/plain")
	rw.WriteHeader(http.StatusOK)
	rw.Write([]byte("test"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Fatalf("expected Content-Type=text/plain, got %q", ct)
	}
}
