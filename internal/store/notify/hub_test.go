package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/muktadirmaashif/itcf-2026/internal/store"
	"github.com/muktadirmaashif/itcf-2026/internal/store/notify"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := notify.NewHub()
	a, err := h.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	b, _ := h.Subscribe(ctx)

	h.Publish(store.Notification{Kind: store.KindState, Version: 7})

	for name, ch := range map[string]<-chan store.Notification{"a": a, "b": b} {
		select {
		case n := <-ch:
			if n.Kind != store.KindState || n.Version != 7 {
				t.Errorf("%s got %+v", name, n)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s got no notification", name)
		}
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := notify.NewHub()
	ch, _ := h.Subscribe(ctx)

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := notify.NewHub()
	_, _ = h.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := range 1000 {
			h.Publish(store.Notification{Kind: store.KindState, Version: int64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestHub_SubscribeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := notify.NewHub().Subscribe(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
