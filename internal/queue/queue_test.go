package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

func TestQueueNonBlockingEnqueue(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 0)
	for i := 0; i < 1000; i++ {
		if ok := q.Enqueue(model.StockAdjustment{ProductID: "x", Delta: -1}); !ok {
			t.Fatalf("enqueue failed at %d", i)
		}
	}
	if q.QueueDepth() == 0 {
		t.Fatalf("expected depth > 0")
	}
}

func TestQueueShutdownIntake(t *testing.T) {
	q := New(1)
	if ok := q.Enqueue(model.StockAdjustment{ProductID: "x", Delta: -1}); !ok {
		t.Fatalf("expected enqueue true before close")
	}
	q.CloseIntake()
	if ok := q.Enqueue(model.StockAdjustment{ProductID: "x", Delta: -1}); ok {
		t.Fatalf("expected enqueue false when shutting down")
	}
}

func TestManagerDrainAppliesAdjustments(t *testing.T) {
	cfg := config.Load()
	obs.InitLogger("error")
	st := store.NewMemory()
	ctx := context.Background()
	p := model.Product{Name: "Falcon", Quantity: 150, Images: []string{}}
	if err := st.CreateProduct(ctx, &p); err != nil {
		t.Fatal(err)
	}

	metrics := obs.NewMetrics()
	mgr := NewManager(cfg, New(16), st, metrics)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	mgr.Start(runCtx)
	defer mgr.Stop()
	for i := 0; i < 100; i++ {
		_ = mgr.Enqueue(model.StockAdjustment{ProductID: p.ID, Delta: -1})
	}
	_ = mgr.Enqueue(model.StockAdjustment{ProductID: "missing", Delta: -1})

	if ok := mgr.DrainUntil(ctx); !ok {
		t.Fatalf("expected drain true")
	}
	got, err := st.FindProduct(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 50 {
		t.Fatalf("expected quantity 50, got %d", got.Quantity)
	}

	emitted, applied, merged := mgr.stats()
	if emitted+merged != 101 {
		t.Fatalf("expected 101 adjustments accounted for, got emitted=%d merged=%d", emitted, merged)
	}
	if applied != emitted {
		t.Fatalf("expected applied == emitted, got %d and %d", applied, emitted)
	}

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, name := range []string{
		"storefront_inventory_adjustments_emitted_total",
		"storefront_inventory_adjustments_applied_total",
		"storefront_inventory_adjustments_merged_total",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}

func TestManagerStockClampsAtZero(t *testing.T) {
	cfg := config.Load()
	st := store.NewMemory()
	ctx := context.Background()
	p := model.Product{Name: "Falcon", Quantity: 3, Images: []string{}}
	if err := st.CreateProduct(ctx, &p); err != nil {
		t.Fatal(err)
	}
	mgr := NewManager(cfg, New(4), st, nil)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	mgr.Start(runCtx)
	defer mgr.Stop()
	_ = mgr.Enqueue(model.StockAdjustment{ProductID: p.ID, Delta: -2})
	_ = mgr.Enqueue(model.StockAdjustment{ProductID: p.ID, Delta: -2})
	if ok := mgr.DrainUntil(ctx); !ok {
		t.Fatalf("expected drain true")
	}
	got, _ := st.FindProduct(ctx, p.ID)
	if got.Quantity != 0 {
		t.Fatalf("expected quantity clamped to 0, got %d", got.Quantity)
	}
}

func TestQueueCoalescesPerProduct(t *testing.T) {
	q := New(4)
	for i := 1; i <= 3; i++ {
		q.Enqueue(model.StockAdjustment{ProductID: "a", Delta: -1, Sequence: uint64(i)})
	}
	q.Enqueue(model.StockAdjustment{ProductID: "b", Delta: -2, Sequence: 4})
	q.Enqueue(model.StockAdjustment{ProductID: "a", Delta: 5, Sequence: 5})
	if got := q.BacklogSize(); got != 3 {
		t.Fatalf("expected 3 pending products, got %d", got)
	}
	if got := q.Coalesced(); got != 2 {
		t.Fatalf("expected 2 merged adjustments, got %d", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 0)
	want := []model.StockAdjustment{
		{ProductID: "a", Delta: -3, Sequence: 3},
		{ProductID: "b", Delta: -2, Sequence: 4},
		{ProductID: "a", Delta: 5, Sequence: 5},
	}
	for i, w := range want {
		if got := <-q.Out(); got != w {
			t.Fatalf("adjustment %d: expected %+v, got %+v", i, w, got)
		}
	}
}

func TestSequencerIncreases(t *testing.T) {
	var s Sequencer
	if a, b := s.Next(), s.Next(); a != 1 || b != 2 {
		t.Fatalf("expected 1,2 got %d,%d", a, b)
	}
}
