package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kimata/mohist/models"
)

// governor wraps every extraction call with bounded retries for transient
// page failures and bounded re-authentication on session loss. It
// implements ExtractionPort so the rest of the engine stays oblivious.
type governor struct {
	port ExtractionPort
	auth Authenticator

	fetchRetries int
	loginRetries int
	retryDelay   time.Duration

	metrics *Metrics
}

func newGovernor(port ExtractionPort, auth Authenticator, fetchRetries, loginRetries int, retryDelay time.Duration, metrics *Metrics) *governor {
	return &governor{
		port:         port,
		auth:         auth,
		fetchRetries: fetchRetries,
		loginRetries: loginRetries,
		retryDelay:   retryDelay,
		metrics:      metrics,
	}
}

func (g *governor) ListPeriods(ctx context.Context) ([]models.Period, error) {
	var out []models.Period
	err := g.do(ctx, "list_periods", func() error {
		var err error
		out, err = g.port.ListPeriods(ctx)
		return err
	})
	return out, err
}

func (g *governor) CountOrders(ctx context.Context, p models.Period) (int, error) {
	var out int
	err := g.do(ctx, "count_orders", func() error {
		var err error
		out, err = g.port.CountOrders(ctx, p)
		return err
	})
	return out, err
}

func (g *governor) ListOrders(ctx context.Context, p models.Period) ([]models.OrderSummary, error) {
	var out []models.OrderSummary
	err := g.do(ctx, "list_orders", func() error {
		var err error
		out, err = g.port.ListOrders(ctx, p)
		return err
	})
	return out, err
}

func (g *governor) FetchOrderDetail(ctx context.Context, linkNo string) ([]models.ItemDetail, error) {
	var out []models.ItemDetail
	err := g.do(ctx, "fetch_order_detail", func() error {
		var err error
		out, err = g.port.FetchOrderDetail(ctx, linkNo)
		return err
	})
	return out, err
}

// do runs op with the retry policy: transient page errors get up to
// fetchRetries attempts with a fixed delay in between; a session loss
// triggers re-authentication once per operation and does not consume a
// page attempt. Exhaustion of either bound escalates to a CrawlError.
func (g *governor) do(ctx context.Context, op string, fn func() error) error {
	recovered := false
	var lastErr error

	for attempt := 1; attempt <= g.fetchRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var sessionLoss *SessionLossError
		if errors.As(err, &sessionLoss) {
			if recovered {
				return &CrawlError{Err: fmt.Errorf("%s: session lost again after re-login: %w", op, err)}
			}
			if rerr := g.recoverSession(ctx); rerr != nil {
				return rerr
			}
			recovered = true
			attempt--
			continue
		}

		var page *PageError
		if !errors.As(err, &page) {
			// not part of the retryable taxonomy, surface as-is
			return err
		}

		g.metrics.IncError("page")
		slog.Warn("transient page error",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)

		if attempt == g.fetchRetries {
			break
		}
		g.metrics.IncRetries()
		if err := sleepCtx(ctx, g.retryDelay); err != nil {
			return err
		}
	}

	return &CrawlError{Err: fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, g.fetchRetries, lastErr)}
}

// recoverSession resubmits credentials and re-checks for the login marker,
// up to the login bound. Exhausting it signals a credential or
// configuration problem, not a flaky page.
func (g *governor) recoverSession(ctx context.Context) error {
	slog.Info("session lost, trying to login")

	for attempt := 1; attempt <= g.loginRetries; attempt++ {
		if attempt > 1 {
			slog.Info("retry to login", slog.Int("attempt", attempt))
		}
		g.metrics.IncLogins()

		if err := g.auth.Login(ctx); err != nil {
			slog.Warn("login attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}
		ok, err := g.auth.LoggedIn(ctx)
		if err != nil {
			slog.Warn("login check failed", slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}
		if ok {
			return nil
		}
		slog.Warn("failed to login", slog.Int("attempt", attempt))
	}

	g.metrics.IncError("session_loss")
	return &CrawlError{Err: fmt.Errorf("%w after %d attempts", ErrLoginFailed, g.loginRetries)}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
