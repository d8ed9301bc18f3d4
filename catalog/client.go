// Package catalog talks to the ebooks.com JSON API: a low-level fetch client
// plus a taxonomy resolver on top of it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-ebooks-catalog/config"
	"github.com/aluiziolira/go-ebooks-catalog/models"
)

// API endpoints, relative to the site root.
const (
	MenuEndpoint   = "/api/subject/menu/"
	SearchEndpoint = "/api/search/subject/"
)

// SearchPage is one decoded page of the subject search endpoint.
type SearchPage struct {
	TotalResults int              `json:"total_results"`
	Books        []models.RawBook `json:"books"`
}

// Client issues read-only GET requests against the catalog API and decodes
// the JSON responses. The whole crawl is one sequential flow, so the colly
// collector runs synchronously; its limit rule carries the inter-page delay.
type Client struct {
	cfg       *config.Config
	base      string
	collector *colly.Collector
	agents    UserAgentProvider
	metrics   *Metrics

	mu         sync.Mutex
	respBody   []byte
	respStatus int
}

// NewClient builds a client configured from cfg. agents supplies the
// User-Agent for every request; a nil provider falls back to the rotating
// default pool.
func NewClient(cfg *config.Config, agents UserAgentProvider, metrics *Metrics) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	if agents == nil {
		agents = NewRandomUserAgent(cfg.UserAgents)
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	// API endpoints, not crawl targets.
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       cfg.PageDelay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		base:      strings.TrimSuffix(cfg.BaseURL, "/"),
		collector: collector,
		agents:    agents,
		metrics:   metrics,
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", c.agents.UserAgent())
		r.Headers.Set("Accept-Language", "en-US")
		r.Headers.Set("Accept", "application/json")
		r.Ctx.Put("start", time.Now())
		c.metrics.IncRequest("started")
	})

	collector.OnResponse(func(r *colly.Response) {
		c.respBody = r.Body
		c.respStatus = r.StatusCode
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			c.metrics.ObserveDuration(time.Since(start))
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			c.respStatus = r.StatusCode
		}
	})

	return c, nil
}

// SetTransport swaps the underlying HTTP transport. Used by tests to inject
// a mock.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
}

// Fetch issues a GET against endpoint with the given query parameters and
// decodes the JSON body into target. Remote failures (network, timeout,
// non-2xx) are retried with capped exponential backoff; a body that fails to
// decode is a contract violation and fails fast.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values, target any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fullURL := c.base + endpoint
	if encoded := params.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.IncRetries()
			delay := c.backoff(attempt)
			slog.Debug("retrying request",
				slog.String("url", fullURL),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		c.respBody = nil
		c.respStatus = 0

		if err := c.collector.Visit(fullURL); err != nil {
			classified := classifyError(err, c.respStatus)
			c.metrics.IncError(errorTypeLabel(classified))
			slog.Warn("request failed",
				slog.String("url", fullURL),
				slog.String("category", errorTypeLabel(classified)),
				slog.Any("error", err),
			)
			lastErr = classified
			continue
		}

		if len(c.respBody) == 0 {
			malformed := MalformedError{Err: fmt.Errorf("empty response body")}
			c.metrics.IncError(errorTypeLabel(malformed))
			return malformed
		}
		if err := json.Unmarshal(c.respBody, target); err != nil {
			malformed := MalformedError{Err: err}
			c.metrics.IncError(errorTypeLabel(malformed))
			return malformed
		}

		c.metrics.IncRequest("succeeded")
		return nil
	}

	return fmt.Errorf("after %d retries: %w", c.cfg.MaxRetries, lastErr)
}

// SearchPage fetches one page of raw records for a subject. Page numbers
// start at 1.
func (c *Client) SearchPage(ctx context.Context, page, subjectID int) (*SearchPage, error) {
	params := url.Values{
		"pageNumber":  {strconv.Itoa(page)},
		"CountryCode": {c.cfg.CountryCode},
		"subjectID":   {strconv.Itoa(subjectID)},
	}

	var sp SearchPage
	if err := c.Fetch(ctx, SearchEndpoint, params, &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

// TotalResults reads the expected item count for a subject from the first
// search page.
func (c *Client) TotalResults(ctx context.Context, subjectID int) (int, error) {
	sp, err := c.SearchPage(ctx, 1, subjectID)
	if err != nil {
		return 0, err
	}
	return sp.TotalResults, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := c.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := c.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}
