package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-ebooks-catalog/catalog"
	"github.com/aluiziolira/go-ebooks-catalog/config"
	"github.com/aluiziolira/go-ebooks-catalog/parser"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"
	cfg.PageDelay = 0
	cfg.RandomDelay = 0
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config) (*Scraper, *httpmock.MockTransport) {
	t.Helper()

	metrics := catalog.NewMetrics()
	client, err := catalog.NewClient(cfg, catalog.StaticUserAgent("test-agent/1.0"), metrics)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport := httpmock.NewMockTransport()
	client.SetTransport(transport)

	normalizer, err := parser.NewNormalizer(cfg.BaseURL)
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}

	return New(cfg, client, normalizer, metrics), transport
}

func registerPage(transport *httpmock.MockTransport, subjectID, page, total, books int) {
	body := buildSearchPage(total, page, books)
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/search/subject/",
		url.Values{
			"pageNumber":  {strconv.Itoa(page)},
			"CountryCode": {"US"},
			"subjectID":   {strconv.Itoa(subjectID)},
		},
		httpmock.NewStringResponder(200, body))
}

func buildSearchPage(total, page, books int) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, `{"total_results": %d, "books": [`, total)
	for i := 0; i < books; i++ {
		id := (page-1)*20 + i + 1
		if i > 0 {
			builder.WriteString(",")
		}
		fmt.Fprintf(&builder,
			`{"id": "%d", "title": "Book %d", "authors": [{"name": "Author %d"}], "book_url": "/b/%d"}`,
			id, id, id, id)
	}
	builder.WriteString("]}")
	return builder.String()
}

func TestCollectPagesUntilEmpty(t *testing.T) {
	s, transport := newTestScraper(t, testConfig())

	// Reported total is deliberately wrong: the empty page terminates the
	// loop, and the mismatch only raises a flag.
	registerPage(transport, 42, 1, 45, 20)
	registerPage(transport, 42, 2, 45, 20)
	registerPage(transport, 42, 3, 45, 10)
	registerPage(transport, 42, 4, 45, 0)

	var fractions []float64
	var lastCollected int
	s.OnProgress(func(collected, expected int, fraction float64) {
		fractions = append(fractions, fraction)
		if collected < lastCollected {
			t.Fatalf("collected went backwards: %d -> %d", lastCollected, collected)
		}
		lastCollected = collected
		if expected != 45 {
			t.Fatalf("expected total = %d, want 45", expected)
		}
	})

	result, err := s.Collect(context.Background(), 42)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if len(result.Books) != 50 {
		t.Fatalf("books = %d, want 50 (all records seen, total ignored)", len(result.Books))
	}
	if result.PageCount != 3 {
		t.Fatalf("pages = %d, want 3", result.PageCount)
	}
	if result.ExpectedTotal != 45 {
		t.Fatalf("expected total = %d, want 45", result.ExpectedTotal)
	}
	if !result.TotalMismatch {
		t.Fatalf("mismatch beyond tolerance should be flagged")
	}

	if len(fractions) != 3 {
		t.Fatalf("progress calls = %d, want 3", len(fractions))
	}
	for i, fraction := range fractions {
		if fraction > 1.0 {
			t.Fatalf("fraction %d = %f, must be capped at 1.0", i, fraction)
		}
		if i > 0 && fraction < fractions[i-1] {
			t.Fatalf("fraction decreased: %f -> %f", fractions[i-1], fraction)
		}
	}
	if got := fractions[len(fractions)-1]; got != 1.0 {
		t.Fatalf("final fraction = %f, want 1.0", got)
	}

	// Records come out normalized in source order.
	first := result.Books[0]
	if first.BookID == nil || *first.BookID != "1" {
		t.Fatalf("first book id = %v, want 1", first.BookID)
	}
	if first.PrimeAuthors != "Author 1" {
		t.Fatalf("first authors = %q", first.PrimeAuthors)
	}
	if first.BookURL != "http://example.test/b/1" {
		t.Fatalf("first url = %q", first.BookURL)
	}
}

func TestCollectEmptyFirstPage(t *testing.T) {
	s, transport := newTestScraper(t, testConfig())
	registerPage(transport, 7, 1, 0, 0)

	result, err := s.Collect(context.Background(), 7)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result")
	}
	if result.TotalMismatch {
		t.Fatalf("zero expected and zero collected is not a mismatch")
	}
}

func TestCollectNullBooksTerminates(t *testing.T) {
	s, transport := newTestScraper(t, testConfig())
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/search/subject/",
		url.Values{"pageNumber": {"1"}, "CountryCode": {"US"}, "subjectID": {"9"}},
		httpmock.NewStringResponder(200, `{"total_results": 10, "books": null}`))

	result, err := s.Collect(context.Background(), 9)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !result.Empty() {
		t.Fatalf("null page should terminate with an empty result")
	}
	if !result.TotalMismatch {
		t.Fatalf("ten expected but none collected should be flagged")
	}
}

func TestCollectWithinTolerance(t *testing.T) {
	s, transport := newTestScraper(t, testConfig())

	registerPage(transport, 42, 1, 20, 20)
	registerPage(transport, 42, 2, 20, 0)

	result, err := s.Collect(context.Background(), 42)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if result.TotalMismatch {
		t.Fatalf("exact match must not be flagged")
	}
}

func TestCollectPropagatesRemoteErrors(t *testing.T) {
	s, transport := newTestScraper(t, testConfig())
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/search/subject/",
		url.Values{"pageNumber": {"1"}, "CountryCode": {"US"}, "subjectID": {"5"}},
		httpmock.NewStringResponder(503, ""))

	if _, err := s.Collect(context.Background(), 5); !catalog.IsRemoteUnavailable(err) {
		t.Fatalf("expected remote unavailable, got %v", err)
	}
}

func TestCollectHonorsCancellation(t *testing.T) {
	s, transport := newTestScraper(t, testConfig())
	registerPage(transport, 42, 1, 20, 20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Collect(ctx, 42); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestTotalMismatch(t *testing.T) {
	tests := []struct {
		name      string
		collected int
		expected  int
		tolerance float64
		want      bool
	}{
		{name: "exact", collected: 100, expected: 100, tolerance: 0.05, want: false},
		{name: "within tolerance", collected: 97, expected: 100, tolerance: 0.05, want: false},
		{name: "beyond tolerance", collected: 90, expected: 100, tolerance: 0.05, want: true},
		{name: "over-collection", collected: 110, expected: 100, tolerance: 0.05, want: true},
		{name: "zero expected zero collected", collected: 0, expected: 0, tolerance: 0.05, want: false},
		{name: "zero expected some collected", collected: 3, expected: 0, tolerance: 0.05, want: true},
		{name: "strict tolerance", collected: 99, expected: 100, tolerance: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := totalMismatch(tt.collected, tt.expected, tt.tolerance); got != tt.want {
				t.Fatalf("totalMismatch(%d, %d, %f) = %v, want %v", tt.collected, tt.expected, tt.tolerance, got, tt.want)
			}
		})
	}
}
