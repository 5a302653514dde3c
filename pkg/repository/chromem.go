package repository

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	chromem "github.com/philippgille/chromem-go"
	"github.com/remora-agent/remora/pkg/model"
)

// chromemIndex is an embedded VectorIndex backed by chromem-go. It is the
// default backend for local runs and tests. Full records are kept in a map
// beside the collection because chromem metadata only holds strings and
// has no listing API.
type chromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	records    map[model.SolutionKey]*model.SolutionRecord
	mu         sync.RWMutex
}

const chromemCollection = "k8s-troubleshooting"

// NewChromem creates an in-process vector index
func NewChromem() (VectorIndex, error) {
	db := chromem.NewDB()

	// Embeddings are provided by the caller, so no embedding func. The
	// default distance is cosine similarity.
	col, err := db.CreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chromem collection")
	}

	return &chromemIndex{
		db:         db,
		collection: col,
		records:    make(map[model.SolutionKey]*model.SolutionRecord),
	}, nil
}

func (x *chromemIndex) Upsert(ctx context.Context, record *model.SolutionRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.checkDimension(record.Embedding); err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        string(record.Key),
		Content:   record.Content(),
		Embedding: record.Embedding,
		Metadata: map[string]string{
			"problem":    record.Problem,
			"type":       string(record.Type),
			"created_at": record.CreatedAt.Format(time.RFC3339),
		},
	}

	// AddDocument overwrites documents with the same ID
	if err := x.collection.AddDocument(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to add document", goerr.V("key", record.Key))
	}

	stored := *record
	x.records[record.Key] = &stored
	return nil
}

func (x *chromemIndex) Query(ctx context.Context, embedding []float32, topK int) ([]*model.QueryHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := x.checkDimension(embedding); err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection size
	count := x.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := x.collection.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chromem collection")
	}

	hits := make([]*model.QueryHit, 0, len(results))
	for _, result := range results {
		key := model.SolutionKey(result.ID)
		record, ok := x.records[key]
		if !ok {
			continue
		}

		// chromem reports cosine similarity, highest first
		hits = append(hits, &model.QueryHit{
			Key:      key,
			Distance: 1 - float64(result.Similarity),
			Record:   record,
		})
	}

	return hits, nil
}

func (x *chromemIndex) List(ctx context.Context) ([]*model.SolutionRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	records := make([]*model.SolutionRecord, 0, len(x.records))
	for _, record := range x.records {
		records = append(records, record)
	}
	return records, nil
}

func (x *chromemIndex) Delete(ctx context.Context, keys []model.SolutionKey) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	deleted := 0
	for _, key := range keys {
		if _, ok := x.records[key]; !ok {
			continue
		}
		if err := x.collection.Delete(ctx, nil, nil, string(key)); err != nil {
			return deleted, goerr.Wrap(err, "failed to delete document", goerr.V("key", key))
		}
		delete(x.records, key)
		deleted++
	}

	return deleted, nil
}

func (x *chromemIndex) Close() error {
	return nil
}

// checkDimension enforces that every vector in the index has the same
// dimension as the first stored record.
func (x *chromemIndex) checkDimension(embedding []float32) error {
	if len(embedding) == 0 {
		return goerr.Wrap(ErrInvalidDimension, "embedding is empty")
	}
	for _, record := range x.records {
		if len(record.Embedding) != len(embedding) {
			return goerr.Wrap(ErrInvalidDimension, "dimension differs from stored records",
				goerr.V("stored", len(record.Embedding)),
				goerr.V("got", len(embedding)))
		}
		break
	}
	return nil
}
