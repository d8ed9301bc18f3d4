// Package scraper drives the paginated collection of catalog records.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aluiziolira/go-ebooks-catalog/catalog"
	"github.com/aluiziolira/go-ebooks-catalog/config"
	"github.com/aluiziolira/go-ebooks-catalog/models"
	"github.com/aluiziolira/go-ebooks-catalog/parser"
)

// ProgressFunc receives collection progress after each page. fraction is
// monotonically non-decreasing and capped at 1.0.
type ProgressFunc func(collected, expected int, fraction float64)

// Scraper collects all records of one topic, page by page.
type Scraper struct {
	cfg        *config.Config
	client     *catalog.Client
	normalizer *parser.Normalizer
	metrics    *catalog.Metrics
	progress   ProgressFunc
}

// New builds a scraper from its collaborators.
func New(cfg *config.Config, client *catalog.Client, normalizer *parser.Normalizer, metrics *catalog.Metrics) *Scraper {
	return &Scraper{
		cfg:        cfg,
		client:     client,
		normalizer: normalizer,
		metrics:    metrics,
	}
}

// OnProgress registers a progress callback. Progress is a side effect for
// the caller's UI and has no bearing on the returned data.
func (s *Scraper) OnProgress(fn ProgressFunc) {
	s.progress = fn
}

// Collect pages through the search endpoint for topicID until a page comes
// back empty, normalizing every record on the way. The empty page is the
// sole termination condition: total_results is advisory only, and a mismatch
// beyond the configured tolerance is surfaced as a warning, never as
// truncation. Cancellation is checked between page fetches.
func (s *Scraper) Collect(ctx context.Context, topicID int) (*models.CollectResult, error) {
	start := time.Now()

	expected, err := s.client.TotalResults(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("query expected total: %w", err)
	}
	slog.Info("starting collection",
		slog.Int("topic_id", topicID),
		slog.Int("expected_total", expected),
	)

	result := &models.CollectResult{
		ExpectedTotal: expected,
		StartTime:     start,
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sp, err := s.client.SearchPage(ctx, page, topicID)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if len(sp.Books) == 0 {
			break
		}

		for _, raw := range sp.Books {
			result.Books = append(result.Books, s.normalizer.Parse(raw))
		}
		result.PageCount++
		s.metrics.IncPages()
		s.metrics.AddBooks(len(sp.Books))

		s.reportProgress(len(result.Books), expected)
		slog.Debug("page collected",
			slog.Int("page", page),
			slog.Int("records", len(sp.Books)),
			slog.Int("collected", len(result.Books)),
		)
	}

	result.EndTime = time.Now()

	if totalMismatch(len(result.Books), expected, s.cfg.TotalTolerance) {
		result.TotalMismatch = true
		slog.Warn("collected count disagrees with reported total",
			slog.Int("collected", len(result.Books)),
			slog.Int("expected", expected),
		)
	}

	return result, nil
}

func (s *Scraper) reportProgress(collected, expected int) {
	if s.progress == nil {
		return
	}

	fraction := 1.0
	if expected > 0 {
		fraction = float64(collected) / float64(expected)
		if fraction > 1 {
			fraction = 1
		}
	} else if collected == 0 {
		fraction = 0
	}
	s.progress(collected, expected, fraction)
}

func totalMismatch(collected, expected int, tolerance float64) bool {
	if expected <= 0 {
		return collected > 0
	}
	diff := math.Abs(float64(collected - expected))
	return diff > tolerance*float64(expected)
}
