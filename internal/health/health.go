package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/muktadirmaashif/itcf-2026/internal/clock"
)

// Status represents a health check result.
type Status struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Version   *int64            `json:"snapshot_version,omitempty"`
	Leader    bool              `json:"leader"`
	Timestamp string            `json:"timestamp"`
}

// Checker defines a named health check function.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler provides HTTP health check endpoints.
type Handler struct {
	mu       sync.RWMutex
	ready    bool
	leader   bool
	version  func() int64
	checkers []Checker
	clock    clock.Clock
}

// NewHandler creates a new health handler with the given checkers.
func NewHandler(clk clock.Clock, checkers ...Checker) *Handler {
	return &Handler{checkers: checkers, clock: clk}
}

// SetReady marks the service as ready to receive traffic.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// SetLeader records whether this replica holds the leader lease.
func (h *Handler) SetLeader(leader bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leader = leader
}

// ReportVersion makes both endpoints include the snapshot version returned
// by fn. A negative version is left out.
func (h *Handler) ReportVersion(fn func() int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version = fn
}

func (h *Handler) status(s string) Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st := Status{
		Status:    s,
		Leader:    h.leader,
		Timestamp: h.clock.Now().UTC().Format(time.RFC3339),
	}
	if h.version != nil {
		if v := h.version(); v >= 0 {
			st.Version = &v
		}
	}
	return st
}

// LivenessHandler returns HTTP 200 if the process is alive.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.status("ok"))
	}
}

// ReadinessHandler returns HTTP 200 if the service is ready.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		ready := h.ready
		h.mu.RUnlock()

		if !ready {
			writeJSON(w, http.StatusServiceUnavailable, h.status("not_ready"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true
		for _, c := range h.checkers {
			if err := c.Check(ctx); err != nil {
				checks[c.Name] = err.Error()
				allOK = false
			} else {
				checks[c.Name] = "ok"
			}
		}

		st := h.status("ready")
		code := http.StatusOK
		if !allOK {
			st.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}
		st.Checks = checks
		writeJSON(w, code, st)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
