package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/adapter"
	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/repository"
	"github.com/remora-agent/remora/pkg/utils/logging"
	"github.com/remora-agent/remora/pkg/utils/metrics"
)

// NotFoundSentinel is returned by Retrieve when the index has no similar
// solutions. It is a fixed non-empty string so callers can distinguish
// absence from transport failure.
const NotFoundSentinel = "No similar solutions found in memory"

const DefaultTopK = 3

// Service owns the vector index access pattern: it builds documents,
// derives content keys, embeds problem text and formats query results.
// Store and Retrieve never fail past the boundary; failures come back as
// descriptive strings.
type Service struct {
	index   repository.VectorIndex
	gemini  adapter.Gemini
	archive adapter.Storage
	metrics metrics.Recorder
}

// Option is a functional option for Service
type Option func(*Service)

// WithArchive enables the Cloud Storage solution archive
func WithArchive(storage adapter.Storage) Option {
	return func(s *Service) {
		s.archive = storage
	}
}

// WithMetrics sets the operation recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = r
	}
}

// New creates a memory Service instance
func New(index repository.VectorIndex, gemini adapter.Gemini, opts ...Option) *Service {
	s := &Service{
		index:   index,
		gemini:  gemini,
		metrics: metrics.Noop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Store persists a troubleshooting solution. The problem text is embedded
// once, the key is derived from its content, and a prior record with the
// same key is overwritten. The return value is always a human-readable
// string: a confirmation on success, a failure description otherwise.
func (s *Service) Store(ctx context.Context, problem, solution, resources string) string {
	record := &model.SolutionRecord{
		Key:       model.NewSolutionKey(problem),
		Problem:   problem,
		Solution:  solution,
		Resources: resources,
		Type:      model.RecordTypeK8sSolution,
		CreatedAt: time.Now(),
	}

	if err := record.Validate(); err != nil {
		s.metrics.StoreCompleted(false)
		return "Failed to store solution: " + err.Error()
	}

	embedding, err := s.gemini.Embedding(ctx, problem)
	if err != nil {
		logging.From(ctx).Error("failed to embed problem text", "error", err)
		s.metrics.StoreCompleted(false)
		return "Failed to store solution: " + err.Error()
	}
	record.Embedding = embedding

	if err := s.index.Upsert(ctx, record); err != nil {
		logging.From(ctx).Error("failed to upsert solution", "error", err, "key", record.Key)
		s.metrics.StoreCompleted(false)
		return "Failed to store solution: " + err.Error()
	}

	s.archiveRecord(ctx, record)
	s.metrics.StoreCompleted(true)

	return "Solution stored successfully"
}

// Retrieve searches the index for solutions similar to the query and
// formats them as enumerated blocks with their distances. An empty result
// set yields NotFoundSentinel, never an empty string.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) string {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := s.gemini.Embedding(ctx, query)
	if err != nil {
		logging.From(ctx).Error("failed to embed query", "error", err)
		s.metrics.RetrieveCompleted(false, 0)
		return "Failed to retrieve solutions: " + err.Error()
	}

	hits, err := s.index.Query(ctx, embedding, topK)
	if err != nil {
		logging.From(ctx).Error("failed to query index", "error", err)
		s.metrics.RetrieveCompleted(false, 0)
		return "Failed to retrieve solutions: " + err.Error()
	}

	if len(hits) == 0 {
		s.metrics.RetrieveCompleted(true, 0)
		return NotFoundSentinel
	}

	blocks := make([]string, 0, len(hits))
	for i, hit := range hits {
		blocks = append(blocks, fmt.Sprintf("*Solution %d* (Distance: %.2f):\n%s",
			i+1, hit.Distance, hit.Record.Content()))
	}

	s.metrics.RetrieveCompleted(true, len(hits))
	return strings.Join(blocks, "\n\n")
}

// List returns all stored records for the admin surface
func (s *Service) List(ctx context.Context) ([]*model.SolutionRecord, error) {
	records, err := s.index.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list records")
	}
	return records, nil
}

// Purge deletes every stored record and returns the deleted count. It is
// an administrative operation assumed to run with no concurrent writers.
func (s *Service) Purge(ctx context.Context) (int, error) {
	records, err := s.index.List(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list records for purge")
	}
	if len(records) == 0 {
		return 0, nil
	}

	keys := make([]model.SolutionKey, 0, len(records))
	for _, record := range records {
		keys = append(keys, record.Key)
	}

	deleted, err := s.index.Delete(ctx, keys)
	if err != nil {
		return deleted, goerr.Wrap(err, "failed to delete records")
	}

	return deleted, nil
}

// archiveRecord writes the stored document to the archive bucket when one
// is configured. Archive failures never affect the store confirmation.
func (s *Service) archiveRecord(ctx context.Context, record *model.SolutionRecord) {
	if s.archive == nil {
		return
	}

	w, err := s.archive.Put(ctx, "solutions/"+string(record.Key)+".json")
	if err != nil {
		logging.From(ctx).Warn("failed to open archive writer", "error", err, "key", record.Key)
		return
	}

	doc := map[string]any{
		"key":        record.Key,
		"problem":    record.Problem,
		"solution":   record.Solution,
		"resources":  record.Resources,
		"type":       record.Type,
		"created_at": record.CreatedAt,
	}
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		logging.From(ctx).Warn("failed to write archive document", "error", err, "key", record.Key)
	}
	if err := w.Close(); err != nil {
		logging.From(ctx).Warn("failed to close archive writer", "error", err, "key", record.Key)
	}
}
