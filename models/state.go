package models

import "time"

// PeriodRecord tracks crawl progress for one period. OrderCount stays nil
// until the month has been counted; Checked becomes true only after every
// order of the period has been reconciled into the order index.
type PeriodRecord struct {
	OrderCount *int `json:"order_count,omitempty"`
	Checked    bool `json:"checked"`
}

// CrawlState is the aggregate crawl progress persisted between runs. It has
// exactly one writer, the crawl orchestrator, for the lifetime of a run.
type CrawlState struct {
	Periods    []Period                `json:"periods"`
	Records    map[string]PeriodRecord `json:"records"`
	OrderIndex map[string]bool         `json:"order_index"`
	LineItems  []LineItem              `json:"line_items"`
	LastSyncAt time.Time               `json:"last_sync_at"`
}

// NewCrawlState returns the empty defaults used when no prior snapshot
// exists. The zero LastSyncAt puts every period at or after the reopen
// boundary, so a first run examines all history.
func NewCrawlState() *CrawlState {
	return &CrawlState{
		Records:    make(map[string]PeriodRecord),
		OrderIndex: make(map[string]bool),
	}
}

// Normalize restores invariants after deserialization of a hand-edited or
// older snapshot (nil maps become empty).
func (s *CrawlState) Normalize() {
	if s.Records == nil {
		s.Records = make(map[string]PeriodRecord)
	}
	if s.OrderIndex == nil {
		s.OrderIndex = make(map[string]bool)
	}
}

// SetPeriods replaces the ordered set of periods under examination.
func (s *CrawlState) SetPeriods(periods []Period) {
	s.Periods = periods
}

// Record returns the progress record for a period, zero-valued if the
// period has never been seen.
func (s *CrawlState) Record(p Period) PeriodRecord {
	return s.Records[p.String()]
}

// SetOrderCount stores the observed number of orders in a period.
func (s *CrawlState) SetOrderCount(p Period, count int) {
	rec := s.Records[p.String()]
	rec.OrderCount = &count
	s.Records[p.String()] = rec
}

// OrderCount returns a period's known order count, or ok=false if the
// period has never been counted.
func (s *CrawlState) OrderCount(p Period) (int, bool) {
	rec, ok := s.Records[p.String()]
	if !ok || rec.OrderCount == nil {
		return 0, false
	}
	return *rec.OrderCount, true
}

// SetChecked marks a period fully reconciled.
func (s *CrawlState) SetChecked(p Period) {
	rec := s.Records[p.String()]
	rec.Checked = true
	s.Records[p.String()] = rec
}

// Checked reports whether every order of the period has been reconciled.
func (s *CrawlState) Checked(p Period) bool {
	return s.Records[p.String()].Checked
}

// OrderDone reports whether an order is already fully fetched.
func (s *CrawlState) OrderDone(no string) bool {
	return s.OrderIndex[no]
}

// RecordItems appends an order's line items and inserts the order into the
// index, completing it atomically from the crawler's point of view.
func (s *CrawlState) RecordItems(no string, items []LineItem) {
	s.LineItems = append(s.LineItems, items...)
	s.OrderIndex[no] = true
}

// TotalOrderCount sums the known order counts across all periods.
func (s *CrawlState) TotalOrderCount() int {
	total := 0
	for _, rec := range s.Records {
		if rec.OrderCount != nil {
			total += *rec.OrderCount
		}
	}
	return total
}
