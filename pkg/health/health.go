// Package health implements liveness and readiness probes for HTTP services.
//
// Probes are registered before Start and polled by a single background
// goroutine. A probe flips to failing only after three consecutive errors,
// so a single slow database ping does not take the service out of rotation.
// One passing run flips it back.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// failAfter is the number of consecutive errors before a probe is
// considered failing.
const failAfter = 3

// CheckFunc probes a single component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type probeKind int

const (
	liveness probeKind = iota
	readiness
)

// probe couples a CheckFunc with its polled state. State is written by the
// poller goroutine and read by the HTTP endpoints, guarded by mu.
type probe struct {
	name    string
	kind    probeKind
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	streak  int
	failing bool
	lastErr error
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.fn(ctx)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastErr = err
	if err == nil {
		p.streak = 0
		p.failing = false
		return
	}
	p.streak++
	if p.streak >= failAfter {
		p.failing = true
	}
}

func (p *probe) status() (failing bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failing, p.lastErr
}

// Health polls registered probes and serves probe endpoints. The zero value
// is not usable; construct with New. Services start not-ready and must call
// SetReady(true) once initialization finishes.
type Health struct {
	ready  atomic.Bool
	stop   context.CancelFunc
	stopMu sync.Mutex

	probes []*probe // fixed after Start
}

// New returns a Health with no probes registered.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe for the /livez endpoint. Liveness
// failures mean the process itself is broken and should be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.probes = append(h.probes, &probe{name: name, kind: liveness, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a probe for the /readyz endpoint. Readiness
// failures mean the service should be removed from load balancing until its
// dependencies recover.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.probes = append(h.probes, &probe{name: name, kind: readiness, timeout: timeout, fn: fn})
}

// Start launches the poller goroutine. All probes run once immediately and
// then on every tick of the interval. Probes must not be registered after
// Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.stopMu.Lock()
	h.stop = cancel
	h.stopMu.Unlock()

	go h.loop(ctx, interval)
}

func (h *Health) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pollAll(ctx)
		}
	}
}

func (h *Health) pollAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range h.probes {
		wg.Add(1)
		go func(p *probe) {
			defer wg.Done()
			p.poll(ctx)
		}(p)
	}
	wg.Wait()
}

// Stop cancels the poller goroutine. Safe to call more than once.
func (h *Health) Stop() {
	h.stopMu.Lock()
	defer h.stopMu.Unlock()
	if h.stop != nil {
		h.stop()
		h.stop = nil
	}
}

// SetReady flips the manual readiness gate. Graceful shutdown calls
// SetReady(false) before draining so load balancers stop sending traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, p := range h.probes {
		if p.kind != readiness {
			continue
		}
		if failing, _ := p.status(); failing {
			return false
		}
	}
	return true
}

type probeReport struct {
	Status string            `json:"status"`
	Errors map[string]string `json:"errors,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness probes pass, 503 with
// the failing probe names and errors otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, liveness, true)
}

// ReadyEndpoint serves /readyz: 200 while the service is marked ready and
// all readiness probes pass, 503 otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, readiness, h.ready.Load())
}

func (h *Health) serveReport(w http.ResponseWriter, kind probeKind, gate bool) {
	failed := make(map[string]string)
	for _, p := range h.probes {
		if p.kind != kind {
			continue
		}
		failing, err := p.status()
		if !failing {
			continue
		}
		msg := "probe failing"
		if err != nil {
			msg = err.Error()
		}
		failed[p.name] = msg
	}
	if !gate {
		failed["service"] = "not ready"
	}

	report := probeReport{Status: "pass"}
	code := http.StatusOK
	if len(failed) > 0 {
		report = probeReport{Status: "fail", Errors: failed}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
