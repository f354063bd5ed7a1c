package mailer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluecheck/inquiries/internal/apperr"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(3, 16, nil)
	defer p.Close()

	var running, peak atomic.Int32
	results := make([]<-chan error, 0, 10)
	for i := 0; i < 10; i++ {
		results = append(results, p.Submit(context.Background(), func(context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}
	for i, ch := range results {
		select {
		case err := <-ch:
			if err != nil {
				t.Errorf("job %d: %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("job %d timed out", i)
		}
	}
	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", got)
	}
	if got := peak.Load(); got < 2 {
		t.Errorf("peak concurrency = %d, expected jobs to overlap", got)
	}
}

func TestPool_ReturnsJobError(t *testing.T) {
	p := NewPool(1, 1, nil)
	defer p.Close()

	boom := errors.New("relay refused")
	if err := <-p.Submit(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestPool_RecoversPanics(t *testing.T) {
	p := NewPool(1, 1, nil)
	defer p.Close()

	err := <-p.Submit(context.Background(), func(context.Context) error { panic("bad template") })
	if err == nil {
		t.Fatal("expected error from panicking job")
	}
	if err := <-p.Submit(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("worker should survive a panic: %v", err)
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := NewPool(2, 2, nil)
	p.Close()
	p.Close()

	if err := <-p.Submit(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, apperr.ErrPoolClosed) {
		t.Errorf("err = %v, want ErrPoolClosed", err)
	}
}

func TestPool_CloseDrainsQueue(t *testing.T) {
	p := NewPool(1, 8, nil)

	var mu sync.Mutex
	done := 0
	var chans []<-chan error
	for i := 0; i < 5; i++ {
		chans = append(chans, p.Submit(context.Background(), func(context.Context) error {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			done++
			mu.Unlock()
			return nil
		}))
	}
	p.Close()

	for _, ch := range chans {
		if err := <-ch; err != nil {
			t.Errorf("queued job failed: %v", err)
		}
	}
	if done != 5 {
		t.Errorf("done = %d, want 5", done)
	}
}

func TestPool_CancelledContextSkipsJob(t *testing.T) {
	p := NewPool(1, 1, nil)
	defer p.Close()

	block := make(chan struct{})
	first := p.Submit(context.Background(), func(context.Context) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	second := p.Submit(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	cancel()
	close(block)

	if err := <-first; err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := <-second; !errors.Is(err, context.Canceled) {
		t.Errorf("second err = %v, want context.Canceled", err)
	}
	if ran.Load() {
		t.Error("cancelled job should not run")
	}
}
