package models

import (
	"testing"
	"time"
)

func TestCrawlStatePeriodRecords(t *testing.T) {
	state := NewCrawlState()
	p := Period{2023, time.April}

	if _, known := state.OrderCount(p); known {
		t.Fatalf("count must be unknown for a new period")
	}
	if state.Checked(p) {
		t.Fatalf("new period must not be checked")
	}

	state.SetOrderCount(p, 7)
	count, known := state.OrderCount(p)
	if !known || count != 7 {
		t.Fatalf("OrderCount = %d, %v; want 7, true", count, known)
	}

	state.SetChecked(p)
	if !state.Checked(p) {
		t.Fatalf("period must be checked")
	}
	// checked must not drop the count
	count, known = state.OrderCount(p)
	if !known || count != 7 {
		t.Fatalf("OrderCount after SetChecked = %d, %v", count, known)
	}
}

func TestCrawlStateOrderIndex(t *testing.T) {
	state := NewCrawlState()
	if state.OrderDone("40001") {
		t.Fatalf("unknown order must not be done")
	}

	items := []LineItem{
		{OrderNo: "40001", Name: "bolt", Quantity: 10, UnitPrice: 110},
		{OrderNo: "40001", Name: "nut", Quantity: 10, UnitPrice: 55},
	}
	state.RecordItems("40001", items)

	if !state.OrderDone("40001") {
		t.Fatalf("recorded order must be done")
	}
	if len(state.LineItems) != 2 {
		t.Fatalf("LineItems = %d, want 2", len(state.LineItems))
	}
}

func TestCrawlStateTotalOrderCount(t *testing.T) {
	state := NewCrawlState()
	state.SetOrderCount(Period{2023, time.March}, 3)
	state.SetOrderCount(Period{2023, time.April}, 5)
	state.SetChecked(Period{2023, time.March})

	if got := state.TotalOrderCount(); got != 8 {
		t.Fatalf("TotalOrderCount = %d, want 8", got)
	}
}

func TestCrawlStateNormalize(t *testing.T) {
	state := &CrawlState{}
	state.Normalize()
	if state.Records == nil || state.OrderIndex == nil {
		t.Fatalf("Normalize must allocate maps")
	}
}
