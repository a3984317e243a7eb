package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/branch-forms/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func submitted(id string) *event.Event {
	return event.NewEvent(event.TypeRecordSubmitted, id, "transmittal", nil)
}

func TestSubscribe(t *testing.T) {
	d := NewDispatcher()
	noop := func(ctx context.Context, evt *event.Event) error { return nil }

	d.Subscribe(event.TypeRecordSubmitted, noop)
	d.Subscribe(event.TypeRecordSubmitted, noop)
	d.SubscribeNamed(event.TypeRecordTransitioned, "status-board", noop)

	names := d.Handlers(event.TypeRecordSubmitted)
	if len(names) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(names))
	}
	if names[0] == names[1] {
		t.Errorf("auto-generated names collide: %v", names)
	}
	if got := d.Handlers(event.TypeRecordTransitioned); len(got) != 1 || got[0] != "status-board" {
		t.Errorf("unexpected named handlers: %v", got)
	}
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []int
		for i := 0; i < 3; i++ {
			i := i
			d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
				order = append(order, i)
				return nil
			})
		}

		if err := d.Dispatch(context.Background(), submitted("rec-1")); err != nil {
			t.Fatalf("Dispatch() failed: %v", err)
		}
		if fmt.Sprint(order) != "[0 1 2]" {
			t.Errorf("handlers ran out of order: %v", order)
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&mockLogger{}))
		boom := errors.New("boom")
		var calls int
		d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
			calls++
			return boom
		})
		d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
			calls++
			return nil
		})

		err := d.Dispatch(context.Background(), submitted("rec-1"))
		if !errors.Is(err, boom) {
			t.Errorf("Dispatch() error = %v, want %v", err, boom)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("recovers from handler panic", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
			panic("bad handler")
		})

		if err := d.Dispatch(context.Background(), submitted("rec-1")); err == nil {
			t.Error("expected error from panicking handler")
		}
	})

	t.Run("ignores other event types", func(t *testing.T) {
		d := NewDispatcher()
		var called bool
		d.Subscribe(event.TypeRecordTransitioned, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		if err := d.Dispatch(context.Background(), submitted("rec-1")); err != nil {
			t.Fatalf("Dispatch() failed: %v", err)
		}
		if called {
			t.Error("handler for a different event type was called")
		}
	})

	t.Run("refuses after close", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
		if err := d.Dispatch(context.Background(), submitted("rec-1")); err == nil {
			t.Error("expected error after Close()")
		}
		if err := d.Close(); err == nil {
			t.Error("expected error on second Close()")
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("runs all handlers and Close waits", func(t *testing.T) {
		d := NewDispatcher()
		var count atomic.Int32
		for i := 0; i < 5; i++ {
			d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
				time.Sleep(5 * time.Millisecond)
				count.Add(1)
				return nil
			})
		}

		d.DispatchAsync(context.Background(), submitted("rec-1"))
		if err := d.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
		if got := count.Load(); got != 5 {
			t.Errorf("expected 5 handler runs, got %d", got)
		}
	})

	t.Run("survives caller cancellation", func(t *testing.T) {
		d := NewDispatcher()
		var ctxErr atomic.Value
		d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			ctxErr.Store(fmt.Sprint(ctx.Err()))
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchAsync(ctx, submitted("rec-1"))
		cancel()
		_ = d.Close()

		if got := ctxErr.Load(); got != "<nil>" {
			t.Errorf("handler context was cancelled: %v", got)
		}
	})

	t.Run("logs handler errors and panics", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
			return errors.New("failed")
		})
		d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
			panic("bad handler")
		})

		d.DispatchAsync(context.Background(), submitted("rec-1"))
		_ = d.Close()

		if got := logger.ErrorCount(); got != 2 {
			t.Errorf("expected 2 logged errors, got %d", got)
		}
	})

	t.Run("drops events after close", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Bool
		d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
			called.Store(true)
			return nil
		})
		_ = d.Close()

		d.DispatchAsync(context.Background(), submitted("rec-1"))
		if called.Load() {
			t.Error("handler ran after Close()")
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("expected closed-dispatcher error to be logged")
		}
	})
}
