package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/health"
	"github.com/muktadirmaashif/itcf-2026/internal/replica"
)

var testClk = clock.Mock{T: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}

func TestLivenessHandler(t *testing.T) {
	h := health.NewHandler(testClk)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	h.LivenessHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	var s health.Status
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Status != "ok" {
		t.Errorf("got status %q, want %q", s.Status, "ok")
	}
	if s.Timestamp != "2026-03-01T18:00:00Z" {
		t.Errorf("got timestamp %q", s.Timestamp)
	}
	if s.Version != nil {
		t.Errorf("got version %d, want none", *s.Version)
	}
}

func TestLivenessHandler_ReportsVersionAndLeader(t *testing.T) {
	tests := []struct {
		name        string
		version     int64
		leader      bool
		wantVersion bool
	}{
		{name: "loaded leader", version: 42, leader: true, wantVersion: true},
		{name: "not loaded yet", version: -1, leader: false, wantVersion: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(testClk)
			h.ReportVersion(func() int64 { return tt.version })
			h.SetLeader(tt.leader)

			rec := httptest.NewRecorder()
			h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			var s health.Status
			if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
				t.Fatal(err)
			}
			if s.Leader != tt.leader {
				t.Errorf("got leader %v, want %v", s.Leader, tt.leader)
			}
			if got := s.Version != nil; got != tt.wantVersion {
				t.Fatalf("version reported = %v, want %v", got, tt.wantVersion)
			}
			if tt.wantVersion && *s.Version != tt.version {
				t.Errorf("got version %d, want %d", *s.Version, tt.version)
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		checkers   []health.Checker
		wantCode   int
		wantStatus string
	}{
		{
			name:       "not ready",
			ready:      false,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
		},
		{
			name:       "ready no checkers",
			ready:      true,
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name:  "ready all checks pass",
			ready: true,
			checkers: []health.Checker{
				{Name: "database", Check: func(ctx context.Context) error { return nil }},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name:  "replica not loaded",
			ready: true,
			checkers: []health.Checker{
				{Name: "database", Check: func(ctx context.Context) error { return nil }},
				{Name: "replica", Check: func(ctx context.Context) error { return replica.ErrNotLoaded }},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(testClk, tt.checkers...)
			h.SetReady(tt.ready)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

			h.ReadinessHandler().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("got status %d, want %d", rec.Code, tt.wantCode)
			}
			var s health.Status
			if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
				t.Fatal(err)
			}
			if s.Status != tt.wantStatus {
				t.Errorf("got status %q, want %q", s.Status, tt.wantStatus)
			}
			for _, c := range tt.checkers {
				if _, ok := s.Checks[c.Name]; !ok {
					t.Errorf("check %q missing from response", c.Name)
				}
			}
		})
	}
}
