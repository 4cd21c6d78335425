package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
)

// Queue holds stock adjustments waiting for a worker. Pending adjustments for
// the same product with the same sign are folded into one, so a burst of
// checkouts on a popular laptop costs a single store write. Products leave the
// backlog in the order they first entered it.
type Queue struct {
	mu      sync.Mutex
	order   []string
	pending map[string]*model.StockAdjustment
	notify  chan struct{}
	out     chan model.StockAdjustment
	closed  atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
	coalesced atomic.Uint64
}

// New creates a Queue whose output channel buffers outBuffer adjustments.
func New(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		pending: make(map[string]*model.StockAdjustment),
		notify:  make(chan struct{}, 1),
		out:     make(chan model.StockAdjustment, outBuffer),
	}
}

// Start runs the broker until ctx is done.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	go q.broker(ctx, highWatermark)
}

func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.flush()
		if sz := q.BacklogSize(); highWatermark > 0 && sz > highWatermark {
			obs.Logger.Warn("inventory_backlog_high", "backlog_size", sz, "high_watermark", highWatermark)
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// flush hands pending adjustments to workers while the output has room.
func (q *Queue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for n < len(q.order) && len(q.out) < cap(q.out) {
		key := q.order[n]
		q.out <- *q.pending[key]
		delete(q.pending, key)
		n++
	}
	q.order = q.order[n:]
}

// Enqueue adds adj to the backlog, merging it into a pending adjustment for
// the same product when both move stock the same way. It never blocks and
// returns false once intake is closed.
func (q *Queue) Enqueue(adj model.StockAdjustment) bool {
	if q.closed.Load() {
		return false
	}
	q.mu.Lock()
	key := adj.ProductID
	if adj.Delta > 0 {
		key = "+" + key
	}
	if p, ok := q.pending[key]; ok {
		p.Delta += adj.Delta
		p.Sequence = max(p.Sequence, adj.Sequence)
		q.coalesced.Add(1)
	} else {
		q.pending[key] = &adj
		q.order = append(q.order, key)
		q.enqueued.Add(1)
	}
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

func (q *Queue) Out() <-chan model.StockAdjustment { return q.out }

// BacklogSize returns the number of products with an adjustment not yet
// handed to a worker.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// QueueDepth is the backlog plus adjustments buffered for workers.
func (q *Queue) QueueDepth() int {
	return q.BacklogSize() + len(q.out)
}

// Coalesced counts adjustments merged into an already pending one.
func (q *Queue) Coalesced() uint64 { return q.coalesced.Load() }

func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// Metrics returns the emitted and processed counters with current sizes.
// Merged adjustments are not counted as emitted.
func (q *Queue) Metrics() (enq, proc uint64, backlog, depth int) {
	enq = q.enqueued.Load()
	proc = q.processed.Load()
	backlog = q.BacklogSize()
	depth = q.QueueDepth()
	return enq, proc, backlog, depth
}

// CloseIntake makes every later Enqueue fail.
func (q *Queue) CloseIntake() { q.closed.Store(true) }
