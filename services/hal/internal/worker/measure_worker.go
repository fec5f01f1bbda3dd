// services/hal/internal/worker/measure_worker.go
package worker

import (
	"context"
	"time"

	"mprcode-go/services/hal/internal/halcore"
	"mprcode-go/services/hal/internal/util"
)

// MeasureWorker owns one bus. Every Trigger and Collect for adaptors on that
// bus runs on the worker goroutine, so transactions never interleave. The
// settle interval between the two phases is a timer, not a sleep, which lets
// other devices on the same bus be triggered meanwhile.
//
// A failed phase is reported once; the worker never retries.
type MeasureWorker struct {
	cfg  halcore.WorkerConfig
	reqQ chan halcore.MeasureReq
	sink chan<- halcore.Result // fan-in sink owned by service

	pending  map[string]*collectItem
	collects []*collectItem
	timer    *time.Timer
}

type collectItem struct {
	id      string
	adaptor halcore.Adaptor
	due     time.Time
}

func New(cfg halcore.WorkerConfig, sink chan<- halcore.Result) *MeasureWorker {
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 100 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.InputQueueSize <= 0 {
		cfg.InputQueueSize = 16
	}
	return &MeasureWorker{
		cfg:     cfg,
		reqQ:    make(chan halcore.MeasureReq, cfg.InputQueueSize),
		sink:    sink,
		pending: map[string]*collectItem{},
		timer:   time.NewTimer(time.Hour),
	}
}

// Submit queues a request without blocking. Priority requests wait briefly
// for queue space.
func (w *MeasureWorker) Submit(req halcore.MeasureReq) bool {
	select {
	case w.reqQ <- req:
		return true
	default:
		if req.Prio {
			select {
			case w.reqQ <- req:
				return true
			case <-time.After(5 * time.Millisecond):
			}
		}
		return false
	}
}

func (w *MeasureWorker) Start(ctx context.Context) {
	if !w.timer.Stop() {
		util.DrainTimer(w.timer)
	}
	go w.run(ctx)
}

func (w *MeasureWorker) run(ctx context.Context) {
	for {
		if next := w.minDue(); next.IsZero() {
			util.ResetTimer(w.timer, time.Hour)
		} else {
			util.ResetTimer(w.timer, time.Until(next))
		}
		select {
		case <-ctx.Done():
			return
		case req := <-w.reqQ:
			w.trigger(ctx, req)
		case <-w.timer.C:
			w.collectDue(ctx, time.Now())
		}
	}
}

func (w *MeasureWorker) trigger(ctx context.Context, req halcore.MeasureReq) {
	// One transaction per device; a request while one is in flight is
	// satisfied by the pending result.
	if _, ok := w.pending[req.ID]; ok {
		return
	}
	tctx, cancel := context.WithTimeout(ctx, w.cfg.TriggerTimeout)
	after, err := req.Adaptor.Trigger(tctx)
	cancel()
	if err != nil {
		w.emit(ctx, halcore.Result{ID: req.ID, Err: err})
		return
	}
	it := &collectItem{id: req.ID, adaptor: req.Adaptor, due: time.Now().Add(after)}
	w.pending[req.ID] = it
	w.collects = append(w.collects, it)
}

func (w *MeasureWorker) collectDue(ctx context.Context, now time.Time) {
	var keep []*collectItem
	for _, it := range w.collects {
		if now.Before(it.due) {
			keep = append(keep, it)
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, w.cfg.CollectTimeout)
		s, err := it.adaptor.Collect(cctx)
		cancel()
		delete(w.pending, it.id)
		w.emit(ctx, halcore.Result{ID: it.id, Sample: s, Err: err})
	}
	w.collects = keep
}

func (w *MeasureWorker) emit(ctx context.Context, r halcore.Result) {
	select {
	case w.sink <- r:
	case <-ctx.Done():
	}
}

func (w *MeasureWorker) minDue() time.Time {
	var min time.Time
	for _, it := range w.collects {
		if min.IsZero() || it.due.Before(min) {
			min = it.due
		}
	}
	return min
}
