package export

import (
	"context"

	"github.com/verte-zerg/sectionals/internal/ingest"
)

// Sink appends every accepted race to a CSV Writer and flushes after each one.
type Sink struct {
	w *Writer
}

// NewSink returns a Sink writing through w.
func NewSink(w *Writer) *Sink {
	return &Sink{w: w}
}

// Accept implements ingest.Sink.
func (s *Sink) Accept(_ context.Context, doc ingest.Document) error {
	if err := s.w.WriteRace(doc.Race); err != nil {
		return err
	}
	return s.w.Flush()
}
