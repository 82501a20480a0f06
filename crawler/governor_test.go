package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/kimata/mohist/models"
)

// flakyPort fails every call with the configured error until failures runs
// out, then succeeds.
type flakyPort struct {
	err      error
	failures int
	calls    int
}

func (f *flakyPort) ListPeriods(ctx context.Context) ([]models.Period, error) {
	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return nil, f.err
	}
	return []models.Period{{Year: 2023, Month: 4}}, nil
}

func (f *flakyPort) CountOrders(ctx context.Context, p models.Period) (int, error) {
	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return 0, f.err
	}
	return 0, nil
}

func (f *flakyPort) ListOrders(ctx context.Context, p models.Period) ([]models.OrderSummary, error) {
	return nil, nil
}

func (f *flakyPort) FetchOrderDetail(ctx context.Context, linkNo string) ([]models.ItemDetail, error) {
	return nil, nil
}

type fakeAuth struct {
	loginCalls   int
	checkCalls   int
	loginOK      bool
	loginOKAfter int
}

func (a *fakeAuth) Login(ctx context.Context) error {
	a.loginCalls++
	return nil
}

func (a *fakeAuth) LoggedIn(ctx context.Context) (bool, error) {
	a.checkCalls++
	if a.loginOKAfter > 0 && a.loginCalls >= a.loginOKAfter {
		return true, nil
	}
	return a.loginOK, nil
}

func TestGovernorPageErrorExhaustion(t *testing.T) {
	port := &flakyPort{err: &PageError{URL: "http://example.test", Err: errors.New("structure mismatch")}, failures: -1}
	gov := newGovernor(port, &fakeAuth{}, 3, 2, 0, nil)

	_, err := gov.ListPeriods(context.Background())

	var crawl *CrawlError
	if !errors.As(err, &crawl) {
		t.Fatalf("expected CrawlError, got %v", err)
	}
	if port.calls != 3 {
		t.Fatalf("attempts = %d, want exactly 3", port.calls)
	}
}

func TestGovernorRecoversAfterTransientError(t *testing.T) {
	port := &flakyPort{err: &PageError{Err: errors.New("timeout")}, failures: 2}
	gov := newGovernor(port, &fakeAuth{}, 3, 2, 0, nil)

	periods, err := gov.ListPeriods(context.Background())
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("periods = %d, want 1", len(periods))
	}
	if port.calls != 3 {
		t.Fatalf("attempts = %d, want 3", port.calls)
	}
}

func TestGovernorSessionLossExhaustion(t *testing.T) {
	port := &flakyPort{err: &SessionLossError{URL: "http://example.test"}, failures: -1}
	auth := &fakeAuth{loginOK: false}
	gov := newGovernor(port, auth, 3, 2, 0, nil)

	_, err := gov.ListPeriods(context.Background())

	var crawl *CrawlError
	if !errors.As(err, &crawl) {
		t.Fatalf("expected CrawlError, got %v", err)
	}
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("login exhaustion must be marked ErrLoginFailed, got %v", err)
	}
	if auth.loginCalls != 2 {
		t.Fatalf("login attempts = %d, want exactly 2", auth.loginCalls)
	}
}

func TestGovernorSessionRecovery(t *testing.T) {
	port := &flakyPort{err: &SessionLossError{}, failures: 1}
	auth := &fakeAuth{loginOKAfter: 1}
	gov := newGovernor(port, auth, 3, 2, 0, nil)

	_, err := gov.ListPeriods(context.Background())
	if err != nil {
		t.Fatalf("expected session recovery, got %v", err)
	}
	if auth.loginCalls != 1 {
		t.Fatalf("login attempts = %d, want 1", auth.loginCalls)
	}
	// session recovery must not consume a page retry
	if port.calls != 2 {
		t.Fatalf("port calls = %d, want 2", port.calls)
	}
}

func TestGovernorRepeatedSessionLossInOneCallIsFatal(t *testing.T) {
	port := &flakyPort{err: &SessionLossError{}, failures: -1}
	auth := &fakeAuth{loginOKAfter: 1}
	gov := newGovernor(port, auth, 3, 2, 0, nil)

	_, err := gov.ListPeriods(context.Background())
	var crawl *CrawlError
	if !errors.As(err, &crawl) {
		t.Fatalf("expected CrawlError for repeated session loss, got %v", err)
	}
}

func TestGovernorPassesThroughUnknownErrors(t *testing.T) {
	boom := errors.New("boom")
	port := &flakyPort{err: boom, failures: -1}
	gov := newGovernor(port, &fakeAuth{}, 3, 2, 0, nil)

	_, err := gov.ListPeriods(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected passthrough of %v, got %v", boom, err)
	}
	if port.calls != 1 {
		t.Fatalf("unknown errors must not be retried, calls = %d", port.calls)
	}
}
