package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"strmrefresh/internal/event"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/services"
	"strmrefresh/internal/transfer"
)

type handlerFunc func(context.Context, *event.TransferEvent) (transfer.Result, error)

func (f handlerFunc) Handle(ctx context.Context, evt *event.TransferEvent) (transfer.Result, error) {
	return f(ctx, evt)
}

func TestDispatchSerialisesHandlers(t *testing.T) {
	var inFlight, peak int32
	h := handlerFunc(func(context.Context, *event.TransferEvent) (transfer.Result, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return transfer.Result{}, nil
	})
	d := New(h, logging.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Dispatch(context.Background(), &event.TransferEvent{})
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&peak); got != 1 {
		t.Fatalf("expected serial handling, peak concurrency %d", got)
	}
	if got := d.Stats().Handled; got != 8 {
		t.Fatalf("expected 8 handled, got %d", got)
	}
}

func TestDispatchStampsRequestID(t *testing.T) {
	var seen []string
	h := handlerFunc(func(ctx context.Context, _ *event.TransferEvent) (transfer.Result, error) {
		id, _ := services.RequestIDFromContext(ctx)
		seen = append(seen, id)
		return transfer.Result{}, nil
	})
	d := New(h, logging.NewNop())

	_, _ = d.Dispatch(context.Background(), nil)
	_, _ = d.Dispatch(services.WithRequestID(context.Background(), "req-1"), nil)

	if len(seen) != 2 || seen[0] == "" {
		t.Fatalf("expected generated request id, got %v", seen)
	}
	if seen[1] != "req-1" {
		t.Fatalf("caller request id must be kept, got %q", seen[1])
	}
}

func TestDispatchStats(t *testing.T) {
	calls := 0
	h := handlerFunc(func(context.Context, *event.TransferEvent) (transfer.Result, error) {
		calls++
		switch calls {
		case 1:
			return transfer.Result{Skipped: transfer.SkipDisabled}, nil
		case 2:
			return transfer.Result{}, errors.New("refresh emby: down")
		default:
			return transfer.Result{}, nil
		}
	})
	d := New(h, logging.NewNop())
	for i := 0; i < 3; i++ {
		_, _ = d.Dispatch(context.Background(), nil)
	}

	stats := d.Stats()
	if stats.Handled != 3 || stats.Skipped != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.LastError != "refresh emby: down" || stats.LastEvent.IsZero() {
		t.Fatalf("unexpected last error/time: %+v", stats)
	}
}

func TestDispatchCancelledContext(t *testing.T) {
	called := false
	h := handlerFunc(func(context.Context, *event.TransferEvent) (transfer.Result, error) {
		called = true
		return transfer.Result{}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(h, logging.NewNop()).Dispatch(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if called {
		t.Fatal("handler must not run for cancelled context")
	}
}
