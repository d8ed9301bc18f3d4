package pipeline

import (
	"fmt"

	"github.com/aluiziolira/go-ebooks-catalog/models"
)

// Exporter hands a finished row collection to an output writer in batches.
// Collection is strictly sequential, so the exporter is too; it keeps the
// writer contract and the validation counters of the processing stage.
type Exporter struct {
	writer    OutputWriter
	batchSize int

	processed  int
	validation map[string]int
}

// NewExporter builds an exporter writing through w.
func NewExporter(w OutputWriter, batchSize int) *Exporter {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Exporter{
		writer:     w,
		batchSize:  batchSize,
		validation: make(map[string]int),
	}
}

// Export writes all rows. Rows are never dropped; suspicious ones (no id and
// no title) are only counted, since the upstream record shape is advisory.
func (e *Exporter) Export(books []*models.Book) error {
	batch := make([]*models.Book, 0, e.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.writer.Write(batch); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		e.processed += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, book := range books {
		if book == nil {
			e.validation["nil_record"]++
			continue
		}
		if book.BookID == nil && book.BookTitle == nil {
			e.validation["missing_identity"]++
		}
		batch = append(batch, book)
		if len(batch) >= e.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// Processed returns the number of rows written so far.
func (e *Exporter) Processed() int {
	return e.processed
}

// ValidationCounts returns a copy of the per-kind validation counters.
func (e *Exporter) ValidationCounts() map[string]int {
	out := make(map[string]int, len(e.validation))
	for k, v := range e.validation {
		out[k] = v
	}
	return out
}
