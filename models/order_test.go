package models

import (
	"testing"
	"time"
)

// Rounding is pinned to half away from zero: 999 at 8% is 1078.92 and must
// land on 1079, never 1078.
func TestTaxInclusivePrice(t *testing.T) {
	tests := []struct {
		name  string
		price int
		rate  int
		want  int
	}{
		{name: "exact", price: 1000, rate: 10, want: 1100},
		{name: "rounds up", price: 999, rate: 8, want: 1079},
		{name: "half rounds away from zero", price: 50, rate: 5, want: 53},
		{name: "zero price", price: 0, rate: 10, want: 0},
		{name: "zero rate", price: 777, rate: 0, want: 777},
		{name: "rounds down", price: 101, rate: 8, want: 109},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TaxInclusivePrice(tt.price, tt.rate); got != tt.want {
				t.Fatalf("TaxInclusivePrice(%d, %d) = %d, want %d", tt.price, tt.rate, got, tt.want)
			}
		})
	}
}

func TestNewLineItemAppliesTaxOnce(t *testing.T) {
	link := "L123"
	order := OrderSummary{
		No:         "40001",
		Date:       time.Date(2023, time.April, 5, 10, 0, 0, 0, time.UTC),
		TotalPrice: 1100,
		LinkNo:     &link,
	}
	detail := ItemDetail{
		Name:             "socket wrench",
		Quantity:         2,
		UnitPriceExclTax: 1000,
		TaxRatePercent:   10,
		Category:         []string{"tools", "wrenches"},
		ProductID:        "P100",
		ThumbRef:         "P100.png",
	}

	item := NewLineItem(order, detail)
	if item.UnitPrice != 1100 {
		t.Fatalf("UnitPrice = %d, want 1100", item.UnitPrice)
	}
	if item.OrderNo != "40001" {
		t.Fatalf("OrderNo = %q", item.OrderNo)
	}
	if !item.OrderDate.Equal(order.Date) {
		t.Fatalf("OrderDate = %v", item.OrderDate)
	}
	if item.Quantity != 2 || item.ProductID != "P100" {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestOrderSummaryCancelled(t *testing.T) {
	link := "L1"
	if (OrderSummary{LinkNo: &link}).Cancelled() {
		t.Fatalf("order with link reference must not be cancelled")
	}
	if !(OrderSummary{}).Cancelled() {
		t.Fatalf("order without link reference must be cancelled")
	}
}
