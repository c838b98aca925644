// Package replica keeps a local, read-only copy of the auction in sync with
// the store. Readers get the latest snapshot this process has seen; every
// write still goes through the coordinator against the store.
package replica

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/store"
)

// ErrNotLoaded is returned by Check before the first snapshot arrives.
var ErrNotLoaded = errors.New("replica: no snapshot loaded yet")

// ErrDisconnected is returned by Check while the subscription is down and
// the cached snapshot may be stale.
var ErrDisconnected = errors.New("replica: disconnected from store, snapshot may be stale")

// resubscribeDelay is the pause before reconnecting a dropped subscription.
const resubscribeDelay = time.Second

// Observer is called with every newer snapshot the cache accepts.
type Observer func(ctx context.Context, s *auction.Snapshot)

// Cache is a subscribe-and-reload replica of the auction.
type Cache struct {
	store  store.Snapshots
	logger *slog.Logger
	clock  clock.Clock

	mu        sync.RWMutex
	snap      *auction.Snapshot
	loadedAt  time.Time
	connected bool
	observers []Observer
}

// New returns an empty cache over st. Call Run to start syncing.
func New(st store.Snapshots, logger *slog.Logger, clk clock.Clock) *Cache {
	return &Cache{store: st, logger: logger, clock: clk}
}

// Observe registers fn for every newer snapshot. It must not block.
func (c *Cache) Observe(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Snapshot returns a copy of the latest snapshot, or false before the first
// load.
func (c *Cache) Snapshot() (*auction.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, false
	}
	return c.snap.Clone(), true
}

// Version returns the version of the cached snapshot, or -1 before the first
// load.
func (c *Cache) Version() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return -1
	}
	return c.snap.Version
}

// Check reports whether the cache is loaded and subscribed. It is a
// readiness check.
func (c *Cache) Check(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.snap == nil:
		return ErrNotLoaded
	case !c.connected:
		return fmt.Errorf("%w (version %d, loaded %s)", ErrDisconnected, c.snap.Version, c.loadedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// Offer installs s if it is newer than the cached snapshot. The coordinator
// offers every snapshot it commits so local readers converge without waiting
// for the notification round trip.
func (c *Cache) Offer(ctx context.Context, s *auction.Snapshot) {
	c.install(ctx, s.Clone())
}

// Run subscribes to the store and reloads on every notification newer than
// the cached version. It returns when ctx is done. A dropped subscription is
// re-established and followed by a full reload.
func (c *Cache) Run(ctx context.Context) error {
	for {
		err := c.follow(ctx)
		c.setConnected(false)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.WarnContext(ctx, "replica subscription lost, resubscribing", slog.Any("error", err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}

// follow runs one subscription until it ends.
func (c *Cache) follow(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := c.store.Subscribe(subCtx)
	if err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	// Subscribe first so nothing committed after this load is missed.
	if err := c.Reload(ctx); err != nil {
		return err
	}
	c.setConnected(true)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-ch:
			if !ok {
				return errors.New("subscription closed")
			}
			if n.Kind != store.KindResync && n.Version <= c.Version() {
				continue
			}
			if err := c.Reload(ctx); err != nil {
				return err
			}
		}
	}
}

// Reload fetches the full snapshot from the store.
func (c *Cache) Reload(ctx context.Context) error {
	s, err := c.store.Load(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "reloading replica", slog.Any("error", err))
		return fmt.Errorf("reloading: %w", err)
	}
	c.install(ctx, s)
	return nil
}

func (c *Cache) install(ctx context.Context, s *auction.Snapshot) {
	c.mu.Lock()
	if c.snap != nil && s.Version <= c.snap.Version {
		c.mu.Unlock()
		return
	}
	c.snap = s
	c.loadedAt = c.clock.Now()
	observers := c.observers
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "replica updated",
		slog.Int64("version", s.Version),
		slog.String("phase", string(s.State.Phase)),
	)
	for _, fn := range observers {
		fn(ctx, s.Clone())
	}
}

func (c *Cache) setConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}
