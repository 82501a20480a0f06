package main

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"github.com/kimata/mohist/crawler"
)

var stageLabels = map[crawler.Stage]string{
	crawler.StageCount:   "Count of month",
	crawler.StagePeriods: "Order of month",
	crawler.StageOrders:  "All orders",
}

// progressRenderer turns the engine's structured progress events into
// terminal progress bars. Rendering stays out of the engine entirely.
type progressRenderer struct {
	writer   progress.Writer
	trackers map[crawler.Stage]*progress.Tracker
}

func newProgressRenderer() *progressRenderer {
	pw := progress.NewWriter()
	pw.SetOutputWriter(os.Stderr)
	pw.SetTrackerLength(25)
	pw.SetMessageLength(16)
	pw.SetUpdateFrequency(250 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	go pw.Render()

	return &progressRenderer{
		writer:   pw,
		trackers: make(map[crawler.Stage]*progress.Tracker),
	}
}

// OnProgress implements crawler.Observer.
func (r *progressRenderer) OnProgress(ev crawler.ProgressEvent) {
	tracker, ok := r.trackers[ev.Stage]
	if !ok {
		tracker = &progress.Tracker{
			Message: stageLabels[ev.Stage],
			Total:   int64(ev.Total),
			Units:   progress.UnitsDefault,
		}
		r.trackers[ev.Stage] = tracker
		r.writer.AppendTracker(tracker)
	}

	tracker.UpdateTotal(int64(ev.Total))
	tracker.SetValue(int64(ev.Current))
}

// Stop finishes rendering and flushes remaining output.
func (r *progressRenderer) Stop() {
	for _, tracker := range r.trackers {
		tracker.MarkAsDone()
	}
	r.writer.Stop()
}
