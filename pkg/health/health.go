// Package health serves liveness and readiness probes.
//
// Every check runs on its own ticker. A check flips to unhealthy after
// FailureThreshold consecutive failures and back after SuccessThreshold
// consecutive successes, so a single slow query does not pull the API out of
// rotation.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

const (
	FailureThreshold = 3
	SuccessThreshold = 1
)

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

type kind int

const (
	liveness kind = iota
	readiness
)

// probe is driven by a single goroutine; only healthy and lastErr are read
// concurrently.
type probe struct {
	name    string
	kind    kind
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	p.lastErr.Store(&err)
	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= FailureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	if p.oks++; p.oks >= SuccessThreshold {
		p.healthy.Store(true)
	}
}

// failure returns the reason the probe is unhealthy, or "" if it is healthy.
func (p *probe) failure() string {
	if p.healthy.Load() {
		return ""
	}
	if e := p.lastErr.Load(); e != nil && *e != nil {
		return (*e).Error()
	}
	return "check is unhealthy"
}

// Health tracks the probes of one process.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(name, liveness, timeout, fn)
}

// AddReadinessCheck registers a check that decides whether the process should
// receive traffic, e.g. database connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(name, readiness, timeout, fn)
}

func (h *Health) add(name string, k kind, timeout time.Duration, fn CheckFunc) {
	p := &probe{name: name, kind: k, timeout: timeout, fn: fn}
	p.healthy.Store(true)

	h.mu.Lock()
	h.probes = append(h.probes, p)
	h.mu.Unlock()
}

// Start runs every registered check immediately and then every interval
// until Stop or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := slices.Clone(h.probes)
	h.mu.Unlock()

	for _, p := range probes {
		go func() {
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				p.run(ctx)
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
			}
		}()
	}
}

// Stop cancels the check goroutines. It is idempotent.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the process ready after startup, or not ready during
// shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the process is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(readiness)) == 0
}

func (h *Health) failures(k kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range h.probes {
		if p.kind != k {
			continue
		}
		if msg := p.failure(); msg != "" {
			out[p.name] = msg
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(liveness))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// writeStatus writes {"status":"ok"} with 200, or {"status":"unhealthy",
// "checks":{...}} with 503 listing failures by name.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	code := http.StatusOK
	if len(failures) == 0 {
		e.Str("ok")
	} else {
		code = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
