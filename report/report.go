// Package report renders the final line-item collection for external
// consumers: newest orders first, line items grouped by order.
package report

import (
	"slices"

	"github.com/kimata/mohist/models"
)

// Items returns the recorded line items sorted by order date descending.
// The sort is stable, so the lines of one order stay contiguous and in the
// order the site listed them.
func Items(state *models.CrawlState) []models.LineItem {
	items := make([]models.LineItem, len(state.LineItems))
	copy(items, state.LineItems)

	slices.SortStableFunc(items, func(a, b models.LineItem) int {
		switch {
		case a.OrderDate.After(b.OrderDate):
			return -1
		case a.OrderDate.Before(b.OrderDate):
			return 1
		default:
			return 0
		}
	})
	return items
}

// Orders groups the sorted line items by order number, preserving the
// newest-first ordering.
type Order struct {
	No    string
	Items []models.LineItem
}

// GroupByOrder splits the report items into per-order groups.
func GroupByOrder(items []models.LineItem) []Order {
	var orders []Order
	for _, item := range items {
		if n := len(orders); n > 0 && orders[n-1].No == item.OrderNo {
			orders[n-1].Items = append(orders[n-1].Items, item)
			continue
		}
		orders = append(orders, Order{No: item.OrderNo, Items: []models.LineItem{item}})
	}
	return orders
}
