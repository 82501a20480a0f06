package crawler

import "github.com/kimata/mohist/models"

// Stage identifies which progress counter an event belongs to.
type Stage string

const (
	// StageCount is the per-month order-count pass.
	StageCount Stage = "count"
	// StagePeriods is the per-month reconcile pass.
	StagePeriods Stage = "periods"
	// StageOrders is the all-orders counter across the whole run.
	StageOrders Stage = "orders"
)

// ProgressEvent is a structured progress signal. Rendering is an external
// collaborator's concern; the engine only emits events.
type ProgressEvent struct {
	Stage   Stage
	Period  *models.Period
	Current int
	Total   int
}

// Observer receives progress events during a run.
type Observer interface {
	OnProgress(ProgressEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ProgressEvent)

// OnProgress calls f.
func (f ObserverFunc) OnProgress(ev ProgressEvent) {
	f(ev)
}

type nopObserver struct{}

func (nopObserver) OnProgress(ProgressEvent) {}

// progressTracker keeps the three counters and forwards snapshots to the
// observer.
type progressTracker struct {
	observer Observer
	current  map[Stage]int
	total    map[Stage]int
}

func newProgressTracker(observer Observer) *progressTracker {
	if observer == nil {
		observer = nopObserver{}
	}
	return &progressTracker{
		observer: observer,
		current:  make(map[Stage]int),
		total:    make(map[Stage]int),
	}
}

func (t *progressTracker) setTotal(stage Stage, total int) {
	t.total[stage] = total
	t.emit(stage, nil)
}

func (t *progressTracker) advance(stage Stage, p *models.Period, n int) {
	t.current[stage] += n
	t.emit(stage, p)
}

func (t *progressTracker) emit(stage Stage, p *models.Period) {
	t.observer.OnProgress(ProgressEvent{
		Stage:   stage,
		Period:  p,
		Current: t.current[stage],
		Total:   t.total[stage],
	})
}
