package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/model"
	"google.golang.org/api/iterator"
)

// firestoreIndex implements VectorIndex using Firestore vector search.
// Records live in one collection, keyed by the content-derived solution
// key, with the embedding in a Vector32 field queried via FindNearest.
type firestoreIndex struct {
	client     *firestore.Client
	collection string
}

const distanceField = "vector_distance"

type firestoreRecord struct {
	Problem   string             `firestore:"problem"`
	Solution  string             `firestore:"solution"`
	Resources string             `firestore:"resources"`
	Type      string             `firestore:"type"`
	CreatedAt time.Time          `firestore:"created_at"`
	Embedding firestore.Vector32 `firestore:"embedding"`
	Distance  float64            `firestore:"vector_distance"`
}

// NewFirestore creates a Firestore-backed vector index
func NewFirestore(ctx context.Context, projectID, databaseName, collection string) (VectorIndex, error) {
	if collection == "" {
		collection = "solutions"
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseName))
	}

	return &firestoreIndex{
		client:     client,
		collection: collection,
	}, nil
}

func (x *firestoreIndex) Upsert(ctx context.Context, record *model.SolutionRecord) error {
	doc := x.client.Collection(x.collection).Doc(string(record.Key))

	// Set replaces the full document, which gives last-write-wins for
	// racing writes to the same key
	_, err := doc.Set(ctx, &firestoreRecord{
		Problem:   record.Problem,
		Solution:  record.Solution,
		Resources: record.Resources,
		Type:      string(record.Type),
		CreatedAt: record.CreatedAt,
		Embedding: firestore.Vector32(record.Embedding),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to upsert record", goerr.V("key", record.Key))
	}

	return nil
}

func (x *firestoreIndex) Query(ctx context.Context, embedding []float32, topK int) ([]*model.QueryHit, error) {
	vq := x.client.Collection(x.collection).FindNearest(
		"embedding",
		firestore.Vector32(embedding),
		topK,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{
			DistanceResultField: distanceField,
		},
	)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var hits []*model.QueryHit
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector query")
		}

		var stored firestoreRecord
		if err := doc.DataTo(&stored); err != nil {
			return nil, goerr.Wrap(err, "failed to decode record", goerr.V("doc", doc.Ref.ID))
		}

		hits = append(hits, &model.QueryHit{
			Key:      model.SolutionKey(doc.Ref.ID),
			Distance: stored.Distance,
			Record:   toRecord(doc.Ref.ID, &stored),
		})
	}

	return hits, nil
}

func (x *firestoreIndex) List(ctx context.Context) ([]*model.SolutionRecord, error) {
	iter := x.client.Collection(x.collection).Documents(ctx)
	defer iter.Stop()

	var records []*model.SolutionRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list records")
		}

		var stored firestoreRecord
		if err := doc.DataTo(&stored); err != nil {
			return nil, goerr.Wrap(err, "failed to decode record", goerr.V("doc", doc.Ref.ID))
		}
		records = append(records, toRecord(doc.Ref.ID, &stored))
	}

	return records, nil
}

func (x *firestoreIndex) Delete(ctx context.Context, keys []model.SolutionKey) (int, error) {
	deleted := 0
	for _, key := range keys {
		if _, err := x.client.Collection(x.collection).Doc(string(key)).Delete(ctx); err != nil {
			return deleted, goerr.Wrap(err, "failed to delete record", goerr.V("key", key))
		}
		deleted++
	}
	return deleted, nil
}

func (x *firestoreIndex) Close() error {
	return x.client.Close()
}

func toRecord(id string, stored *firestoreRecord) *model.SolutionRecord {
	return &model.SolutionRecord{
		Key:       model.SolutionKey(id),
		Problem:   stored.Problem,
		Solution:  stored.Solution,
		Resources: stored.Resources,
		Embedding: []float32(stored.Embedding),
		Type:      model.RecordType(stored.Type),
		CreatedAt: stored.CreatedAt,
	}
}
