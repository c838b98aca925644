package clock_test

import (
	"testing"
	"time"

	"github.com/muktadirmaashif/itcf-2026/internal/clock"
)

func TestReal_Now(t *testing.T) {
	clk := clock.Real{}
	before := time.Now()
	got := clk.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Real.Now() = %v, expected between %v and %v", got, before, after)
	}
}

func TestMock_Now(t *testing.T) {
	fixed := time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC)
	clk := clock.Mock{T: fixed}

	if got := clk.Now(); !got.Equal(fixed) {
		t.Errorf("Mock.Now() = %v, want %v", got, fixed)
	}
	if got := clk.Now(); !got.Equal(fixed) {
		t.Errorf("Mock.Now() second call = %v, want %v", got, fixed)
	}
}

func TestStepper_Now(t *testing.T) {
	start := time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC)
	clk := &clock.Stepper{T: start, Step: time.Second}

	first := clk.Now()
	second := clk.Now()

	if !first.Equal(start) {
		t.Errorf("first Now() = %v, want %v", first, start)
	}
	if got := second.Sub(first); got != time.Second {
		t.Errorf("step = %v, want 1s", got)
	}
}
