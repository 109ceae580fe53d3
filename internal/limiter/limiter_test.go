package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLimiterNeverExceedsLimit(t *testing.T) {
	for n := 1; n <= 10; n++ {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			l := New[int](context.Background(), n)
			defer l.Close()

			var current, peak atomic.Int64
			futures := make([]*Future[int], 0, 40)
			for i := range 40 {
				futures = append(futures, l.Submit(func(ctx context.Context) (int, error) {
					now := current.Add(1)
					for {
						old := peak.Load()
						if now <= old || peak.CompareAndSwap(old, now) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					current.Add(-1)
					return i, nil
				}))
			}

			if err := l.Drain(waitCtx(t)); err != nil {
				t.Fatalf("Drain() failed: %v", err)
			}
			if got := peak.Load(); got > int64(n) || got < 1 {
				t.Fatalf("peak concurrency %d outside [1, %d]", got, n)
			}
			for i, f := range futures {
				v, err := f.Await(waitCtx(t))
				if err != nil || v != i {
					t.Fatalf("future %d = %d, %v", i, v, err)
				}
			}
			if running, queued := l.Stats(); running != 0 || queued != 0 {
				t.Fatalf("expected an idle limiter, got running=%d queued=%d", running, queued)
			}
		})
	}
}

func TestLimiterAdmitsInSubmissionOrder(t *testing.T) {
	l := New[int](context.Background(), 1)
	defer l.Close()

	var mu sync.Mutex
	var order []int
	for i := range 20 {
		l.Submit(func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
	}
	if err := l.Drain(waitCtx(t)); err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected admission order 0..19, got %v", order)
		}
	}
}

func TestDrainWaitsForLateSubmissions(t *testing.T) {
	l := New[string](context.Background(), 2)
	defer l.Close()

	releaseFirst := make(chan struct{})
	releaseLate := make(chan struct{})
	l.Submit(func(ctx context.Context) (string, error) {
		<-releaseFirst
		return "first", nil
	})

	drained := make(chan error, 1)
	go func() {
		drained <- l.Drain(context.Background())
	}()

	late := l.Submit(func(ctx context.Context) (string, error) {
		<-releaseLate
		return "late", nil
	})

	close(releaseFirst)
	select {
	case <-drained:
		t.Fatalf("Drain() returned while a late task was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseLate)
	select {
	case err := <-drained:
		if err != nil {
			t.Fatalf("Drain() failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Drain() did not return")
	}
	select {
	case <-late.Done():
	default:
		t.Fatalf("late task not settled after Drain()")
	}
}

func TestTaskFailuresAreIsolated(t *testing.T) {
	l := New[int](context.Background(), 2)
	defer l.Close()

	boom := errors.New("boom")
	failing := l.Submit(func(ctx context.Context) (int, error) {
		return 0, boom
	})
	panicking := l.Submit(func(ctx context.Context) (int, error) {
		panic("bad task")
	})
	healthy := l.Submit(func(ctx context.Context) (int, error) {
		return 42, nil
	})

	if err := l.Drain(waitCtx(t)); err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}
	if _, err := failing.Await(waitCtx(t)); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if _, err := panicking.Await(waitCtx(t)); err == nil || !strings.Contains(err.Error(), "bad task") {
		t.Fatalf("expected the panic as an error, got %v", err)
	}
	if v, err := healthy.Await(waitCtx(t)); err != nil || v != 42 {
		t.Fatalf("expected 42, got %d, %v", v, err)
	}
}

func TestCancellationStopsAdmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New[string](ctx, 1)
	defer l.Close()

	started := make(chan struct{})
	inFlight := l.Submit(func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "stopped", nil
	})
	<-started

	var ran atomic.Bool
	queued := make([]*Future[string], 0, 3)
	for range 3 {
		queued = append(queued, l.Submit(func(ctx context.Context) (string, error) {
			ran.Store(true)
			return "ran", nil
		}))
	}

	cancel()

	if v, err := inFlight.Await(waitCtx(t)); err != nil || v != "stopped" {
		t.Fatalf("in-flight task should complete, got %q, %v", v, err)
	}
	for i, f := range queued {
		if _, err := f.Await(waitCtx(t)); !errors.Is(err, ErrCancelled) {
			t.Fatalf("queued task %d: expected ErrCancelled, got %v", i, err)
		}
	}
	if ran.Load() {
		t.Fatalf("a queued task ran after cancellation")
	}
	if err := l.Drain(waitCtx(t)); err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}

	after := l.Submit(func(ctx context.Context) (string, error) {
		return "never", nil
	})
	if _, err := after.Await(waitCtx(t)); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled for a submission after cancellation, got %v", err)
	}
}

func TestAwaitHonoursContext(t *testing.T) {
	l := New[int](context.Background(), 1)
	defer l.Close()

	release := make(chan struct{})
	defer close(release)
	f := l.Submit(func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewClampsLimit(t *testing.T) {
	if got := New[int](context.Background(), 0).Limit(); got != 1 {
		t.Fatalf("expected limit 1, got %d", got)
	}
}
