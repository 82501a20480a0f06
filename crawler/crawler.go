package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/kimata/mohist/config"
	"github.com/kimata/mohist/models"
	"github.com/kimata/mohist/statestore"
)

// Crawler drives a single resumable crawl pass: load state, enumerate
// periods, refresh order counts, reconcile each open period in
// chronological order, persist, and report a terminal status.
type Crawler struct {
	cfg      *config.Config
	port     ExtractionPort
	store    *statestore.Store
	observer Observer
	dumper   Dumper
	Metrics  *Metrics
}

// Result summarizes a finished run.
type Result struct {
	StartTime       time.Time
	EndTime         time.Time
	PeriodsFetched  int
	PeriodsSkipped  int
	OrdersFetched   int
	OrdersCached    int
	OrdersCancelled int
	ItemsRecorded   int
}

// New builds a crawler. The extraction port is wrapped in the retry and
// session governor; auth is consulted only on session loss.
func New(cfg *config.Config, port ExtractionPort, auth Authenticator, store *statestore.Store) *Crawler {
	metrics := NewMetrics()
	return &Crawler{
		cfg:     cfg,
		port:    newGovernor(port, auth, cfg.FetchRetries, cfg.LoginRetries, cfg.RetryDelay, metrics),
		store:   store,
		Metrics: metrics,
	}
}

// SetObserver registers the receiver of structured progress events.
func (c *Crawler) SetObserver(o Observer) {
	c.observer = o
}

// SetDumper registers the diagnostic page-dump capability used on fatal
// failure.
func (c *Crawler) SetDumper(d Dumper) {
	c.dumper = d
}

// Run executes one crawl pass to completion or to the first fatal error.
// On error the current state is still persisted, so already-checked
// periods and already-recorded orders survive into the next run.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	state := c.store.Load()

	// The boundary is fixed at run start; saves during the run move
	// LastSyncAt forward and must not change this run's plan.
	boundary := reopenBoundary(state.LastSyncAt)

	r := &run{
		crawler:  c,
		state:    state,
		boundary: boundary,
		progress: newProgressTracker(c.observer),
		result:   &Result{StartTime: time.Now()},
	}

	err := r.execute(ctx)
	if err != nil {
		c.Metrics.IncError(errorTypeLabel(err))
		c.dumpDiagnostics()
		if serr := c.save(state); serr != nil {
			slog.Error("persisting state after failure", slog.Any("error", serr))
		}
		var crawl *CrawlError
		if !errors.As(err, &crawl) {
			err = &CrawlError{Err: err}
		}
		r.result.EndTime = time.Now()
		return r.result, err
	}

	if err := c.save(state); err != nil {
		return r.result, &CrawlError{Err: err}
	}
	r.result.EndTime = time.Now()
	slog.Info("crawl finished",
		slog.Int("periods_fetched", r.result.PeriodsFetched),
		slog.Int("orders_fetched", r.result.OrdersFetched),
		slog.Int("items_recorded", r.result.ItemsRecorded),
	)
	return r.result, nil
}

func (c *Crawler) save(state *models.CrawlState) error {
	if err := c.store.Save(state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	c.Metrics.IncSnapshots()
	return nil
}

func (c *Crawler) dumpDiagnostics() {
	if c.dumper == nil || c.cfg.DebugDir == "" {
		return
	}
	id := rand.Intn(100)
	if err := c.dumper.DumpPage(c.cfg.DebugDir, id); err != nil {
		slog.Warn("diagnostic dump failed", slog.Any("error", err))
		return
	}
	slog.Info("diagnostic page dumped",
		slog.String("dir", c.cfg.DebugDir),
		slog.Int("id", id),
	)
}

// run carries the per-pass mutable pieces. CrawlState has exactly one
// writer: this run.
type run struct {
	crawler  *Crawler
	state    *models.CrawlState
	boundary time.Time
	progress *progressTracker
	result   *Result
}

func (r *run) execute(ctx context.Context) error {
	c := r.crawler

	periods, err := c.port.ListPeriods(ctx)
	if err != nil {
		return err
	}
	models.SortPeriods(periods)
	r.state.SetPeriods(periods)
	slog.Info("enumerated periods", slog.Int("count", len(periods)))

	if err := r.refreshCounts(ctx, periods); err != nil {
		return err
	}
	if err := c.save(r.state); err != nil {
		return err
	}

	r.progress.setTotal(StageOrders, r.state.TotalOrderCount())
	r.progress.setTotal(StagePeriods, len(periods))

	for _, p := range periods {
		if classify(p, r.state.Checked(p), r.boundary) == classFetch {
			if err := r.reconcilePeriod(ctx, p); err != nil {
				return err
			}
			c.Metrics.IncPeriod("fetched")
			r.result.PeriodsFetched++
		} else {
			count, _ := r.state.OrderCount(p)
			slog.Info("done period", slog.String("period", p.String()), slog.String("state", "cached"))
			r.progress.advance(StageOrders, &p, count)
			c.Metrics.IncPeriod("skipped")
			r.result.PeriodsSkipped++
		}
		r.progress.advance(StagePeriods, &p, 1)
	}
	return nil
}

// refreshCounts establishes per-period order counts for total-progress
// sizing. Counts are re-fetched only for periods at or after the reopen
// boundary or never counted; immutable history keeps its cached count.
func (r *run) refreshCounts(ctx context.Context, periods []models.Period) error {
	c := r.crawler
	r.progress.setTotal(StageCount, len(periods))

	total := 0
	for _, p := range periods {
		count, known := r.state.OrderCount(p)
		if !known || !p.Start().Before(r.boundary) {
			fetched, err := c.port.CountOrders(ctx, p)
			if err != nil {
				return err
			}
			r.state.SetOrderCount(p, fetched)
			count = fetched
			slog.Info("counted orders", slog.String("period", p.String()), slog.Int("orders", count))
		} else {
			slog.Info("counted orders", slog.String("period", p.String()), slog.Int("orders", count), slog.String("state", "cached"))
		}
		total += count
		r.progress.advance(StageCount, &p, 1)
	}
	slog.Info("total orders", slog.Int("orders", total))
	return nil
}

// reconcilePeriod fetches a period's order list, diffs it against the
// order index, and fetches only the missing orders. A single order's
// permanent failure does not discard the rest of the period: the remaining
// orders are still reconciled and persisted, the period stays unchecked,
// and the failure then aborts the run so a later pass retries exactly the
// missing orders.
func (r *run) reconcilePeriod(ctx context.Context, p models.Period) error {
	c := r.crawler
	slog.Info("check orders", slog.String("period", p.String()))

	orders, err := c.port.ListOrders(ctx, p)
	if err != nil {
		return err
	}
	r.state.SetOrderCount(p, len(orders))

	var failure error
	for _, o := range orders {
		switch {
		case o.Cancelled():
			slog.Info("cancelled order",
				slog.String("no", o.No),
				slog.Time("date", o.Date),
			)
			c.Metrics.IncOrder("cancelled")
			r.result.OrdersCancelled++
		case r.state.OrderDone(o.No):
			slog.Info("done order",
				slog.String("no", o.No),
				slog.Time("date", o.Date),
				slog.String("state", "cached"),
			)
			c.Metrics.IncOrder("cached")
			r.result.OrdersCached++
		default:
			if err := r.fetchAndRecord(ctx, o); err != nil {
				if ctx.Err() != nil || errors.Is(err, ErrLoginFailed) {
					// no point finishing the period without a session
					return err
				}
				if failure == nil {
					failure = err
				}
				slog.Error("order left unrecorded",
					slog.String("no", o.No),
					slog.Any("error", err),
				)
			}
		}
		r.progress.advance(StageOrders, &p, 1)
	}

	if failure != nil {
		if serr := c.save(r.state); serr != nil {
			slog.Error("persisting partial period", slog.Any("error", serr))
		}
		return failure
	}

	r.state.SetChecked(p)
	return c.save(r.state)
}

// fetchAndRecord pulls one order's line items, converts prices to
// tax-inclusive, appends them, and completes the order in the index. On
// failure the order stays un-recorded so a later run retries exactly it.
func (r *run) fetchAndRecord(ctx context.Context, o models.OrderSummary) error {
	c := r.crawler
	started := time.Now()

	details, err := c.port.FetchOrderDetail(ctx, *o.LinkNo)
	if err != nil {
		return err
	}
	c.Metrics.ObserveFetch(time.Since(started))

	items := make([]models.LineItem, 0, len(details))
	for _, d := range details {
		items = append(items, models.NewLineItem(o, d))
	}
	r.state.RecordItems(o.No, items)

	c.Metrics.AddItems(len(items))
	c.Metrics.IncOrder("fetched")
	r.result.OrdersFetched++
	r.result.ItemsRecorded += len(items)

	slog.Info("recorded order",
		slog.String("no", o.No),
		slog.Time("date", o.Date),
		slog.Int("items", len(items)),
	)
	return nil
}
