package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/repository"
)

func newRecord(problem string, embedding []float32) *model.SolutionRecord {
	return &model.SolutionRecord{
		Key:       model.NewSolutionKey(problem),
		Problem:   problem,
		Solution:  "solution for " + problem,
		Type:      model.RecordTypeK8sSolution,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}
}

func TestChromemUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	index := gt.R1(repository.NewChromem()).NoError(t)
	defer index.Close()

	gt.NoError(t, index.Upsert(ctx, newRecord("pod pending", []float32{1, 0, 0})))
	gt.NoError(t, index.Upsert(ctx, newRecord("dns flaky", []float32{0, 1, 0})))

	hits := gt.R1(index.Query(ctx, []float32{0.9, 0.1, 0}, 2)).NoError(t)
	gt.A(t, hits).Length(2)

	// Nearest first
	gt.Equal(t, hits[0].Key, model.NewSolutionKey("pod pending"))
	gt.True(t, hits[0].Distance < hits[1].Distance)
	gt.Equal(t, hits[0].Record.Solution, "solution for pod pending")
}

func TestChromemQueryBounds(t *testing.T) {
	ctx := context.Background()
	index := gt.R1(repository.NewChromem()).NoError(t)
	defer index.Close()

	t.Run("empty index yields no hits", func(t *testing.T) {
		hits := gt.R1(index.Query(ctx, []float32{1, 0, 0}, 3)).NoError(t)
		gt.A(t, hits).Length(0)
	})

	t.Run("topK above record count is clamped", func(t *testing.T) {
		gt.NoError(t, index.Upsert(ctx, newRecord("pod pending", []float32{1, 0, 0})))

		hits := gt.R1(index.Query(ctx, []float32{1, 0, 0}, 10)).NoError(t)
		gt.A(t, hits).Length(1)
	})
}

func TestChromemUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	index := gt.R1(repository.NewChromem()).NoError(t)
	defer index.Close()

	first := newRecord("pod pending", []float32{1, 0, 0})
	gt.NoError(t, index.Upsert(ctx, first))

	second := newRecord("pod pending", []float32{1, 0, 0})
	second.Solution = "updated solution"
	gt.NoError(t, index.Upsert(ctx, second))

	records := gt.R1(index.List(ctx)).NoError(t)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0].Solution, "updated solution")
}

func TestChromemDimensionCheck(t *testing.T) {
	ctx := context.Background()
	index := gt.R1(repository.NewChromem()).NoError(t)
	defer index.Close()

	gt.NoError(t, index.Upsert(ctx, newRecord("pod pending", []float32{1, 0, 0})))

	t.Run("upsert with mismatched dimension", func(t *testing.T) {
		err := index.Upsert(ctx, newRecord("other", []float32{1, 0}))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, repository.ErrInvalidDimension))
	})

	t.Run("query with empty embedding", func(t *testing.T) {
		_, err := index.Query(ctx, nil, 3)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, repository.ErrInvalidDimension))
	})
}

func TestChromemDelete(t *testing.T) {
	ctx := context.Background()
	index := gt.R1(repository.NewChromem()).NoError(t)
	defer index.Close()

	problems := []string{"p1", "p2", "p3", "p4", "p5"}
	vectors := [][]float32{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {0, 1, 1},
	}
	keys := make([]model.SolutionKey, 0, len(problems))
	for i, p := range problems {
		record := newRecord(p, vectors[i])
		gt.NoError(t, index.Upsert(ctx, record))
		keys = append(keys, record.Key)
	}

	t.Run("unknown keys are skipped", func(t *testing.T) {
		deleted := gt.R1(index.Delete(ctx, []model.SolutionKey{"solution_missing"})).NoError(t)
		gt.Equal(t, deleted, 0)
	})

	t.Run("bulk delete empties the index", func(t *testing.T) {
		deleted := gt.R1(index.Delete(ctx, keys)).NoError(t)
		gt.Equal(t, deleted, 5)

		records := gt.R1(index.List(ctx)).NoError(t)
		gt.A(t, records).Length(0)

		hits := gt.R1(index.Query(ctx, []float32{1, 0, 0}, 3)).NoError(t)
		gt.A(t, hits).Length(0)
	})
}
