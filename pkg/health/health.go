// Package health serves liveness and readiness endpoints.
//
// Every registered check runs in its own goroutine. A check flips to
// unhealthy after failureThreshold consecutive failures and back after
// successThreshold consecutive successes, so a single slow ping does not
// take the service out of rotation.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

const (
	failureThreshold = 3
	successThreshold = 1
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// check is a registered CheckFunc and its state. run is only called from the
// check's own goroutine, so the counters need no synchronization; healthy and
// lastErr are read by HTTP handlers.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.oks++
	if c.oks >= successThreshold {
		c.healthy.Store(true)
	}
}

// failure returns the reason c is unhealthy, or "" when it is healthy.
func (c *check) failure() string {
	if c.healthy.Load() {
		return ""
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error()
	}
	return "check is unhealthy"
}

// Health tracks liveness and readiness of the service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check deciding whether the process is alive.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check deciding whether the service accepts
// traffic, e.g. database connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

// Start runs every registered check immediately and then once per interval
// until Stop is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := append(append([]*check(nil), h.liveness...), h.readiness...)
	h.mu.Unlock()

	for _, c := range checks {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}()
	}
}

// Stop cancels the check goroutines. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag, cleared during graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(false))) == 0
}

func (h *Health) snapshot(live bool) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if live {
		return append([]*check(nil), h.liveness...)
	}
	return append([]*check(nil), h.readiness...)
}

func failures(checks []*check) map[string]string {
	out := make(map[string]string)
	for _, c := range checks {
		if reason := c.failure(); reason != "" {
			out[c.name] = reason
		}
	}
	return out
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} or 503 with the failing
// checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(true)))
}

// ReadyEndpoint serves /readyz. The manual readiness flag is reported as the
// "_readiness" check.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(false))
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	status, text := http.StatusOK, "ok"
	if len(failed) > 0 {
		status, text = http.StatusServiceUnavailable, "unhealthy"
	}

	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(text) })
		if len(names) == 0 {
			return
		}
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failed[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; a failed write means the client left.
	_, _ = w.Write(e.Bytes())
}
