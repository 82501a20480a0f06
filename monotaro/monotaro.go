// Package monotaro implements the extraction port against the MonotaRO
// order-history pages. Selectors and URL shapes are inherently unstable
// site glue; everything durable lives in the crawler engine.
package monotaro

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kimata/mohist/config"
	"github.com/kimata/mohist/crawler"
)

const (
	// loginMarker shows up where content was expected once the session
	// has expired.
	loginMarker = "h1.LoginTitle"
	// readyMarker is present on every fully loaded content page.
	readyMarker = "#globalMenu"

	pageCacheSize = 64
)

// Client drives one authenticated browsing session against the site. It
// implements crawler.ExtractionPort, crawler.Authenticator and
// crawler.Dumper. Calls are strictly sequential; the session is a single
// stateful resource.
type Client struct {
	cfg       *config.Config
	collector *colly.Collector
	thumbs    *resty.Client
	pages     *lru.Cache[string, *goquery.Document]

	mu       sync.Mutex
	lastURL  string
	lastBody []byte
}

// New builds a client configured from cfg.
func New(cfg *config.Config) (*Client, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true

	pages, err := lru.New[string, *goquery.Document](pageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		collector: collector,
		thumbs:    resty.New().SetTimeout(cfg.Timeout).SetHeader("User-Agent", cfg.UserAgent),
		pages:     pages,
	}
	collector.OnResponse(func(r *colly.Response) {
		c.mu.Lock()
		c.lastURL = r.Request.URL.String()
		c.lastBody = r.Body
		c.mu.Unlock()
	})
	return c, nil
}

// WithTransport swaps the HTTP transport of both the collector and the
// thumbnail client, used by tests to inject a mock.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
	c.thumbs.SetTransport(rt)
}

// fetchPage navigates to url, waits for readiness and returns the parsed
// document. Cached pages skip the network entirely; only content pages are
// cached, never login pages.
func (c *Client) fetchPage(ctx context.Context, url string, cacheable bool) (*goquery.Document, error) {
	if cacheable {
		if doc, ok := c.pages.Get(url); ok {
			return doc, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.collector.Visit(url); err != nil {
		return nil, &crawler.PageError{URL: url, Err: err}
	}

	c.mu.Lock()
	body := c.lastBody
	c.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &crawler.PageError{URL: url, Err: fmt.Errorf("parse html: %w", err)}
	}

	if doc.Find(loginMarker).Length() > 0 {
		return nil, &crawler.SessionLossError{URL: url}
	}
	if doc.Find(readyMarker).Length() == 0 {
		return nil, &crawler.PageError{URL: url, Err: errors.New("global menu not present, page not ready")}
	}

	if err := settle(ctx, c.cfg.SettleDelay); err != nil {
		return nil, err
	}
	if cacheable {
		c.pages.Add(url, doc)
	}
	return doc, nil
}

// Login resubmits credentials to the login endpoint.
func (c *Client) Login(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.collector.Post(loginURL(c.cfg.BaseURL), map[string]string{
		"userId":   c.cfg.UserID,
		"password": c.cfg.Password,
	})
	if err != nil {
		return &crawler.PageError{URL: loginURL(c.cfg.BaseURL), Err: err}
	}
	// the site redirects a few times before the session cookie settles
	return settle(ctx, 2*time.Second)
}

// LoggedIn re-checks the history page for the login marker.
func (c *Client) LoggedIn(ctx context.Context) (bool, error) {
	_, err := c.fetchPage(ctx, historyURL(c.cfg.BaseURL), false)
	var loss *crawler.SessionLossError
	if errors.As(err, &loss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DumpPage writes the most recently fetched page into dir for offline
// debugging, tagged with id.
func (c *Client) DumpPage(dir string, id int) error {
	c.mu.Lock()
	url := c.lastURL
	body := c.lastBody
	c.mu.Unlock()

	if len(body) == 0 {
		return errors.New("no page fetched yet")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}

	htmlPath := filepath.Join(dir, fmt.Sprintf("page-%02d.html", id))
	if err := os.WriteFile(htmlPath, body, 0o644); err != nil {
		return fmt.Errorf("write page dump: %w", err)
	}
	urlPath := filepath.Join(dir, fmt.Sprintf("page-%02d.url.txt", id))
	if err := os.WriteFile(urlPath, []byte(url+"\n"), 0o644); err != nil {
		return fmt.Errorf("write url dump: %w", err)
	}
	return nil
}

func settle(ctx context.Context, d time.Duration) error {
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
