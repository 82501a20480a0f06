package models

import (
	"math"
	"time"
)

// OrderSummary is one entry of a month's order listing. LinkNo is nil for
// cancelled orders, which never materialize into line items.
type OrderSummary struct {
	No         string    `json:"no"`
	Date       time.Time `json:"date"`
	TotalPrice int       `json:"total_price"`
	LinkNo     *string   `json:"link_no"`
}

// Cancelled reports whether the order was cancelled before shipment.
func (o OrderSummary) Cancelled() bool {
	return o.LinkNo == nil
}

// ItemDetail is a single line of an order detail page, prices still
// tax-exclusive as the site lists them.
type ItemDetail struct {
	Name             string
	Quantity         int
	UnitPriceExclTax int
	TaxRatePercent   int
	Category         []string
	ProductID        string
	ThumbRef         string
}

// LineItem is a fully recorded purchase line with the tax-inclusive price.
type LineItem struct {
	OrderNo   string    `csv:"order_no" json:"order_no"`
	OrderDate time.Time `csv:"order_date" json:"order_date"`
	Name      string    `csv:"name" json:"name"`
	Quantity  int       `csv:"quantity" json:"quantity"`
	UnitPrice int       `csv:"unit_price" json:"unit_price"`
	Category  []string  `csv:"category" json:"category"`
	ProductID string    `csv:"product_id" json:"product_id"`
	ThumbRef  string    `csv:"thumb_ref" json:"thumb_ref"`
}

// TaxInclusivePrice converts a tax-exclusive price to the tax-inclusive
// integer price. Rounding is half away from zero; 1000 at 10% gives 1100,
// 999 at 8% gives 1079.
func TaxInclusivePrice(price, taxRatePercent int) int {
	return int(math.Round(float64(price) * (1 + float64(taxRatePercent)/100)))
}

// NewLineItem applies the tax conversion exactly once while binding an item
// detail to its order.
func NewLineItem(order OrderSummary, detail ItemDetail) LineItem {
	return LineItem{
		OrderNo:   order.No,
		OrderDate: order.Date,
		Name:      detail.Name,
		Quantity:  detail.Quantity,
		UnitPrice: TaxInclusivePrice(detail.UnitPriceExclTax, detail.TaxRatePercent),
		Category:  detail.Category,
		ProductID: detail.ProductID,
		ThumbRef:  detail.ThumbRef,
	}
}
