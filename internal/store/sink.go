package store

import (
	"context"

	"github.com/verte-zerg/sectionals/internal/ingest"
)

// Sink persists accepted races.
type Sink struct {
	Store *Store
}

// Accept implements ingest.Sink.
func (s Sink) Accept(ctx context.Context, doc ingest.Document) error {
	_, err := s.Store.InsertRace(ctx, doc.RunID, doc.Path, doc.Race)
	return err
}
