package repository_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/repository"
)

func setupFirestore(t *testing.T) repository.VectorIndex {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	index, err := repository.NewFirestore(context.Background(), projectID, databaseID, "solutions-test")
	gt.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	return index
}

// randomEmbedding returns a 768-dim vector with one dominant axis so two
// records built from different seeds stay distinguishable
func randomEmbedding(seed int) []float32 {
	rng := rand.New(rand.NewSource(int64(seed)))
	vec := make([]float32, 768)
	for i := range vec {
		vec[i] = rng.Float32() * 0.01
	}
	vec[seed%len(vec)] = 1
	return vec
}

func TestFirestoreUpsertAndQuery(t *testing.T) {
	index := setupFirestore(t)
	ctx := context.Background()

	problem := fmt.Sprintf("pod pending %d", time.Now().UnixNano())
	record := &model.SolutionRecord{
		Key:       model.NewSolutionKey(problem),
		Problem:   problem,
		Solution:  "check node capacity",
		Type:      model.RecordTypeK8sSolution,
		Embedding: randomEmbedding(1),
		CreatedAt: time.Now(),
	}

	gt.NoError(t, index.Upsert(ctx, record))
	defer func() {
		_, err := index.Delete(ctx, []model.SolutionKey{record.Key})
		gt.NoError(t, err)
	}()

	hits := gt.R1(index.Query(ctx, record.Embedding, 3)).NoError(t)
	gt.A(t, hits).Longer(0)
	gt.Equal(t, hits[0].Key, record.Key)
	gt.Equal(t, hits[0].Record.Solution, "check node capacity")
}

func TestFirestoreOverwrite(t *testing.T) {
	index := setupFirestore(t)
	ctx := context.Background()

	problem := fmt.Sprintf("dns flaky %d", time.Now().UnixNano())
	record := &model.SolutionRecord{
		Key:       model.NewSolutionKey(problem),
		Problem:   problem,
		Solution:  "first",
		Type:      model.RecordTypeK8sSolution,
		Embedding: randomEmbedding(2),
		CreatedAt: time.Now(),
	}

	gt.NoError(t, index.Upsert(ctx, record))
	record.Solution = "second"
	gt.NoError(t, index.Upsert(ctx, record))
	defer func() {
		_, err := index.Delete(ctx, []model.SolutionKey{record.Key})
		gt.NoError(t, err)
	}()

	hits := gt.R1(index.Query(ctx, record.Embedding, 1)).NoError(t)
	gt.A(t, hits).Length(1)
	gt.Equal(t, hits[0].Record.Solution, "second")
}
