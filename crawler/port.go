// Package crawler implements the incremental crawl/cache engine: period
// planning, order reconciliation, retry and session recovery, and the
// resumable orchestration loop on top of a durable state snapshot.
package crawler

import (
	"context"

	"github.com/kimata/mohist/models"
)

// ExtractionPort is the page-fetching capability the engine consumes but
// does not implement. Every call may fail with a PageError or a
// SessionLossError.
type ExtractionPort interface {
	// ListPeriods returns every year-month with any order history.
	ListPeriods(ctx context.Context) ([]models.Period, error)
	// CountOrders returns the number of orders placed in a period.
	CountOrders(ctx context.Context, p models.Period) (int, error)
	// ListOrders returns a period's order summaries in listing order.
	ListOrders(ctx context.Context, p models.Period) ([]models.OrderSummary, error)
	// FetchOrderDetail returns the line items of one order.
	FetchOrderDetail(ctx context.Context, linkNo string) ([]models.ItemDetail, error)
}

// Authenticator re-establishes the site session after a session loss.
type Authenticator interface {
	// Login submits credentials.
	Login(ctx context.Context) error
	// LoggedIn re-checks for the login marker after a login attempt.
	LoggedIn(ctx context.Context) (bool, error)
}

// Dumper captures a diagnostic snapshot of the page context for offline
// debugging of a fatal failure.
type Dumper interface {
	DumpPage(dir string, id int) error
}
