package memory_test

import (
	"context"
	"testing"

	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/config"
	"github.com/muktadirmaashif/itcf-2026/internal/store"
	"github.com/muktadirmaashif/itcf-2026/internal/store/storetest"

	_ "github.com/muktadirmaashif/itcf-2026/internal/store/memory"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) *store.Repositories {
		r, err := store.Open(context.Background(), config.DatabaseConfig{Driver: "memory"}, clock.Real{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return r
	})
}
