package crawler

import (
	"errors"
	"fmt"
)

// PageError indicates a transient page-level failure: a timeout or a
// structure mismatch not attributable to login. Recovered by bounded retry.
type PageError struct {
	URL string
	Err error
}

func (e *PageError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("page: %v", e.Err)
	}
	return fmt.Sprintf("page %s: %v", e.URL, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// SessionLossError indicates the login marker appeared where content was
// expected. Recovered by bounded re-authentication.
type SessionLossError struct {
	URL string
}

func (e *SessionLossError) Error() string {
	if e.URL == "" {
		return "session lost"
	}
	return fmt.Sprintf("session lost at %s", e.URL)
}

// ErrLoginFailed marks re-authentication exhaustion, a credential or
// configuration problem rather than a flaky page.
var ErrLoginFailed = errors.New("login failed")

// CrawlError is fatal for the current run. The orchestrator persists
// whatever state is already durable and terminates with an error status.
type CrawlError struct {
	Err error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl aborted: %v", e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	var page *PageError
	if errors.As(err, &page) {
		return "page"
	}
	var session *SessionLossError
	if errors.As(err, &session) {
		return "session_loss"
	}
	var crawl *CrawlError
	if errors.As(err, &crawl) {
		return "crawl"
	}
	return "other"
}
