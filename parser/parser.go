// Package parser maps raw catalog records into normalized rows.
package parser

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-ebooks-catalog/models"
)

// UnknownAuthors is the prime_authors value for records without an authors
// list.
const UnknownAuthors = "Unknown"

// Normalizer turns one raw API record into a Book. It is pure: no I/O, never
// fails, every output field is always set.
type Normalizer struct {
	base *url.URL
	now  func() time.Time
}

// NewNormalizer builds a normalizer resolving relative book URLs against
// siteRoot.
func NewNormalizer(siteRoot string) (*Normalizer, error) {
	base, err := url.Parse(siteRoot)
	if err != nil {
		return nil, fmt.Errorf("parse site root: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("site root must include a host")
	}
	return &Normalizer{
		base: base,
		now:  time.Now,
	}, nil
}

// Parse maps a raw record to a normalized row. Absent or null source fields
// become nil; prime_authors defaults to "Unknown"; book_url is always an
// absolute URL.
func (n *Normalizer) Parse(raw models.RawBook) *models.Book {
	return &models.Book{
		BookID:               stringField(raw, "id"),
		BookTitle:            stringField(raw, "title"),
		BookSubtitle:         stringField(raw, "subtitle"),
		BookDescription:      stringField(raw, "description"),
		Publisher:            stringField(raw, "publisher"),
		Edition:              stringField(raw, "edition"),
		PublicationDate:      stringField(raw, "on_sale_date"),
		PublicationMonthYear: stringField(raw, "short_publication_date"),
		PublicationYear:      intField(raw, "publication_year"),
		Price:                stringField(raw, "price"),
		PrimeAuthors:         joinAuthors(raw),
		NumAuthors:           intField(raw, "num_authors"),
		BookURL:              n.resolveURL(raw),
		BookImageURL:         stringField(raw, "image_url"),
		ScrapedAt:            n.now(),
	}
}

func joinAuthors(raw models.RawBook) string {
	list, ok := raw["authors"].([]any)
	if !ok {
		return UnknownAuthors
	}

	names := make([]string, 0, len(list))
	for _, item := range list {
		author, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := author["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return UnknownAuthors
	}
	return strings.Join(names, ", ")
}

// resolveURL joins a possibly-relative book URL with the site root. Absolute
// source URLs pass through unchanged; an absent URL yields the root alone.
func (n *Normalizer) resolveURL(raw models.RawBook) string {
	rawURL := ""
	if s := stringField(raw, "book_url"); s != nil {
		rawURL = *s
	}
	if rawURL == "" {
		return n.base.String()
	}

	ref, err := url.Parse(rawURL)
	if err != nil {
		return n.base.String()
	}
	return n.base.ResolveReference(ref).String()
}

// stringField extracts a string-ish value. JSON numbers are rendered as
// their shortest decimal form since the upstream flips between string and
// numeric ids.
func stringField(raw models.RawBook, key string) *string {
	switch v := raw[key].(type) {
	case string:
		return &v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

func intField(raw models.RawBook, key string) *int {
	switch v := raw[key].(type) {
	case float64:
		i := int(math.Trunc(v))
		return &i
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}
