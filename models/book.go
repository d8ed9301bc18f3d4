// Package models defines data structures for the extractor.
package models

import (
	"strconv"
	"time"
)

// RawBook is one record as returned by the catalog search endpoint. The
// upstream enforces no schema; fields may be absent, null, or oddly typed.
type RawBook map[string]any

// Book is the normalized, schema-stable row produced per catalog item.
// Optional fields stay nil when the source lacked data so the exported JSON
// carries explicit nulls.
type Book struct {
	BookID               *string   `json:"book_id"`
	BookTitle            *string   `json:"book_title"`
	BookSubtitle         *string   `json:"book_subtitle"`
	BookDescription      *string   `json:"book_description"`
	Publisher            *string   `json:"publisher"`
	Edition              *string   `json:"edition"`
	PublicationDate      *string   `json:"publication_date"`
	PublicationMonthYear *string   `json:"publication_month_year"`
	PublicationYear      *int      `json:"publication_year"`
	Price                *string   `json:"price"`
	PrimeAuthors         string    `json:"prime_authors"`
	NumAuthors           *int      `json:"num_authors"`
	BookURL              string    `json:"book_url"`
	BookImageURL         *string   `json:"book_image_url"`
	ScrapedAt            time.Time `json:"scrape_timestamp"`
}

// CollectResult holds the outcome of one pagination run.
type CollectResult struct {
	Books         []*Book
	ExpectedTotal int
	PageCount     int
	StartTime     time.Time
	EndTime       time.Time
	TotalMismatch bool
}

// Empty reports whether the run collected nothing. This is a valid terminal
// state, not an error: the caller should surface "no data" instead of an
// empty export.
func (r *CollectResult) Empty() bool {
	return r == nil || len(r.Books) == 0
}

// Column maps one exported column name to its string rendering.
type Column struct {
	Name  string
	Value func(*Book) string
}

// FullColumns is the complete export schema.
func FullColumns() []Column {
	return []Column{
		{Name: "book_id", Value: func(b *Book) string { return strValue(b.BookID) }},
		{Name: "book_title", Value: func(b *Book) string { return strValue(b.BookTitle) }},
		{Name: "book_subtitle", Value: func(b *Book) string { return strValue(b.BookSubtitle) }},
		{Name: "book_description", Value: func(b *Book) string { return strValue(b.BookDescription) }},
		{Name: "publisher", Value: func(b *Book) string { return strValue(b.Publisher) }},
		{Name: "edition", Value: func(b *Book) string { return strValue(b.Edition) }},
		{Name: "publication_date", Value: func(b *Book) string { return strValue(b.PublicationDate) }},
		{Name: "publication_month_year", Value: func(b *Book) string { return strValue(b.PublicationMonthYear) }},
		{Name: "publication_year", Value: func(b *Book) string { return intValue(b.PublicationYear) }},
		{Name: "price", Value: func(b *Book) string { return strValue(b.Price) }},
		{Name: "prime_authors", Value: func(b *Book) string { return b.PrimeAuthors }},
		{Name: "num_authors", Value: func(b *Book) string { return intValue(b.NumAuthors) }},
		{Name: "book_url", Value: func(b *Book) string { return b.BookURL }},
		{Name: "book_image_url", Value: func(b *Book) string { return strValue(b.BookImageURL) }},
		{Name: "scrape_timestamp", Value: func(b *Book) string { return b.ScrapedAt.Format("2006-01-02 15:04:05") }},
	}
}

// CompactColumns is the reduced export schema carrying only the headline
// fields.
func CompactColumns() []Column {
	return []Column{
		{Name: "book_id", Value: func(b *Book) string { return strValue(b.BookID) }},
		{Name: "book_title", Value: func(b *Book) string { return strValue(b.BookTitle) }},
		{Name: "publication_year", Value: func(b *Book) string { return intValue(b.PublicationYear) }},
		{Name: "price", Value: func(b *Book) string { return strValue(b.Price) }},
		{Name: "authors", Value: func(b *Book) string { return b.PrimeAuthors }},
		{Name: "book_url", Value: func(b *Book) string { return b.BookURL }},
		{Name: "book_image_url", Value: func(b *Book) string { return strValue(b.BookImageURL) }},
		{Name: "scrape_timestamp", Value: func(b *Book) string { return b.ScrapedAt.Format("2006-01-02 15:04:05") }},
	}
}

// ColumnsByName returns the named export schema, defaulting to the full set.
func ColumnsByName(name string) []Column {
	if name == "compact" {
		return CompactColumns()
	}
	return FullColumns()
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intValue(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
