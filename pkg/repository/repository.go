package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/model"
)

var ErrInvalidDimension = goerr.New("embedding dimension mismatch")

// VectorIndex is the durable key to (vector, metadata) index behind the
// memory service. Backends serialize concurrent upserts themselves; writes
// to the same key are last-write-wins. Purge assumes no concurrent writers.
type VectorIndex interface {
	// Upsert stores a record under its content-derived key, replacing any
	// prior record with the same key
	Upsert(ctx context.Context, record *model.SolutionRecord) error

	// Query returns up to topK nearest records ordered by ascending
	// distance (lower is more similar)
	Query(ctx context.Context, embedding []float32, topK int) ([]*model.QueryHit, error)

	// List returns all stored records
	List(ctx context.Context) ([]*model.SolutionRecord, error)

	// Delete removes the given keys and returns the number removed
	Delete(ctx context.Context, keys []model.SolutionKey) (int, error)

	// Close releases backend resources
	Close() error
}
