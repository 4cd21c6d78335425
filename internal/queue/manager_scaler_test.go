package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/model"
)

// slowAdjuster holds every adjustment long enough for a backlog to build.
type slowAdjuster struct{ calls atomic.Int64 }

func (s *slowAdjuster) AdjustStock(context.Context, string, int) error {
	time.Sleep(5 * time.Millisecond)
	s.calls.Add(1)
	return nil
}

func TestManagerScaler_UpAndDown(t *testing.T) {
	t.Setenv("WORKER_MIN", "1")
	t.Setenv("WORKER_MAX", "3")
	t.Setenv("WORKER_COUNT", "1")
	t.Setenv("SCALE_INTERVAL_MS", "50")
	t.Setenv("SCALE_UP_BACKLOG_PER_WORKER", "1")
	t.Setenv("SCALE_DOWN_IDLE_TICKS", "1")

	cfg := config.Load()
	adj := &slowAdjuster{}
	mgr := NewManager(cfg, New(8), adj, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	defer mgr.Stop()

	for i := 0; i < 200; i++ {
		_ = mgr.Enqueue(model.StockAdjustment{ProductID: fmt.Sprintf("scale-%d", i), Delta: -1})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if wc := mgr.WorkerCount(); wc > 1 {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	if wc := mgr.WorkerCount(); wc <= 1 {
		t.Fatalf("expected scale up, worker_count=%d", wc)
	}

	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if ok := mgr.DrainUntil(ctxDrain); !ok {
		t.Fatalf("drain timeout")
	}
	if n := adj.calls.Load(); n != 200 {
		t.Fatalf("expected 200 adjustments applied, got %d", n)
	}

	deadline2 := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline2) {
		if wc := mgr.WorkerCount(); wc == cfg.WorkerMin {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if wc := mgr.WorkerCount(); wc != cfg.WorkerMin {
		t.Fatalf("expected scale down to %d, got %d", cfg.WorkerMin, wc)
	}
}
