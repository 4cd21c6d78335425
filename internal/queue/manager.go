// Package queue applies order-driven stock adjustments in the background with
// an autoscaling worker pool.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

const applyTimeout = 5 * time.Second

// Adjuster applies a stock delta to one product.
type Adjuster interface {
	AdjustStock(ctx context.Context, productID string, delta int) error
}

// Manager coordinates workers applying queued adjustments and scales them
// with the backlog.
type Manager struct {
	cfg     config.Config
	q       *Queue
	adj     Adjuster
	metrics *obs.Metrics
	seq     Sequencer
	ctx     context.Context
	cancel  context.CancelFunc

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager. metrics may be nil.
func NewManager(cfg config.Config, q *Queue, adj Adjuster, metrics *obs.Metrics) *Manager {
	m := &Manager{cfg: cfg, q: q, adj: adj, metrics: metrics}
	if metrics != nil {
		metrics.ObserveInventory(m.stats)
	}
	return m
}

func (m *Manager) stats() (emitted, applied, merged uint64) {
	enq, proc, _, _ := m.q.Metrics()
	return enq, proc, m.q.Coalesced()
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.QueueHighWatermark)
	m.addWorkers(max(m.cfg.InitialWorkerCount, m.cfg.WorkerMin))
	go m.scaler()
}

// Stop cancels background routines and stops workers.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
}

func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			if m.metrics != nil {
				m.metrics.InventoryQueue.Set(float64(m.q.QueueDepth()))
			}
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		go m.worker(wctx)
	}
	obs.Logger.Info("inventory_workers_scaled", "worker_count", len(m.workerCancels))
}

func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n = min(n, len(m.workerCancels))
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.Logger.Info("inventory_workers_scaled", "worker_count", len(m.workerCancels))
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case adj := <-m.q.Out():
			m.apply(adj)
			m.q.MarkProcessed()
		}
	}
}

// apply runs detached from the worker context so an adjustment already taken
// off the queue is not lost when its worker is scaled down.
func (m *Manager) apply(adj model.StockAdjustment) {
	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()
	err := m.adj.AdjustStock(ctx, adj.ProductID, adj.Delta)
	switch {
	case err == nil:
		obs.Logger.Debug("stock_adjusted", "product_id", adj.ProductID, "delta", adj.Delta, "sequence", adj.Sequence)
	case errors.Is(err, store.ErrNotFound):
		obs.Logger.Warn("stock_adjust_skipped", "product_id", adj.ProductID, "sequence", adj.Sequence, "reason", "product not found")
	default:
		obs.Logger.Error("stock_adjust_failed", "product_id", adj.ProductID, "sequence", adj.Sequence, "error", err)
	}
}

// Enqueue stamps adj with the next sequence number and queues it.
func (m *Manager) Enqueue(adj model.StockAdjustment) bool {
	adj.Sequence = m.seq.Next()
	return m.q.Enqueue(adj)
}

func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// CloseIntake disallows future enqueues.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// DrainUntil blocks until every queued adjustment has been applied or ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, backlog, depth := m.q.Metrics()
		if backlog == 0 && depth == 0 && enq == proc {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
