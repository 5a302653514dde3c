package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/repository"
	"github.com/remora-agent/remora/pkg/service/memory"
	"google.golang.org/genai"
)

// mockEmbedder returns fixed vectors per text so similarity is controlled
// by the test, not by a live model.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, goerr.New("not implemented")
}

func (m *mockEmbedder) Embedding(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0.1, 0.1, 0.1}, nil
}

func newService(t *testing.T, embedder *mockEmbedder) (*memory.Service, repository.VectorIndex) {
	t.Helper()
	index := gt.R1(repository.NewChromem()).NoError(t)
	return memory.New(index, embedder), index
}

func TestRetrieveEmpty(t *testing.T) {
	svc, _ := newService(t, &mockEmbedder{})

	got := svc.Retrieve(context.Background(), "pod is crashing", 3)
	gt.Equal(t, got, memory.NotFoundSentinel)
}

func TestStoreAndRetrieve(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"Pod stuck in Pending state": {1, 0, 0},
		"pod pending unschedulable":  {0.9, 0.1, 0},
		"service has no endpoints":   {0, 1, 0},
	}}
	svc, _ := newService(t, embedder)

	got := svc.Store(context.Background(),
		"Pod stuck in Pending state",
		"Check node capacity and remove blocking taints",
		"pod/web-1")
	gt.Equal(t, got, "Solution stored successfully")

	t.Run("similar query hits", func(t *testing.T) {
		reply := svc.Retrieve(context.Background(), "pod pending unschedulable", 3)
		gt.S(t, reply).Contains("*Solution 1*")
		gt.S(t, reply).Contains("Distance:")
		gt.S(t, reply).Contains("Check node capacity and remove blocking taints")
	})

	t.Run("reply carries the full document", func(t *testing.T) {
		reply := svc.Retrieve(context.Background(), "pod pending unschedulable", 3)
		gt.S(t, reply).Contains("Problem: Pod stuck in Pending state")
		gt.S(t, reply).Contains("Resources: pod/web-1")
	})
}

func TestStoreIdempotent(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"Pod stuck in Pending state": {1, 0, 0},
	}}
	svc, _ := newService(t, embedder)

	// Same problem text stored twice overwrites one record
	gt.Equal(t, svc.Store(context.Background(), "Pod stuck in Pending state", "first answer", ""),
		"Solution stored successfully")
	gt.Equal(t, svc.Store(context.Background(), "Pod stuck in Pending state", "second answer", ""),
		"Solution stored successfully")

	records := gt.R1(svc.List(context.Background())).NoError(t)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0].Solution, "second answer")
}

func TestRetrieveTopK(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"problem a": {1, 0, 0},
		"problem b": {0.9, 0.1, 0},
		"problem c": {0.8, 0.2, 0},
		"problem d": {0, 1, 0},
		"query":     {1, 0, 0},
	}}
	svc, _ := newService(t, embedder)

	for _, problem := range []string{"problem a", "problem b", "problem c", "problem d"} {
		gt.Equal(t, svc.Store(context.Background(), problem, "solution for "+problem, ""),
			"Solution stored successfully")
	}

	reply := svc.Retrieve(context.Background(), "query", 2)
	gt.S(t, reply).Contains("*Solution 1*")
	gt.S(t, reply).Contains("*Solution 2*")
	gt.S(t, reply).NotContains("*Solution 3*")

	// Nearest first: the identical vector ranks above its neighbors
	first := strings.Split(reply, "\n\n")[0]
	gt.S(t, first).Contains("solution for problem a")
}

func TestStoreFailures(t *testing.T) {
	t.Run("blank problem", func(t *testing.T) {
		svc, _ := newService(t, &mockEmbedder{})
		got := svc.Store(context.Background(), "  ", "solution", "")
		gt.S(t, got).Contains("Failed to store solution:")
	})

	t.Run("embedding error", func(t *testing.T) {
		svc, _ := newService(t, &mockEmbedder{err: goerr.New("quota exceeded")})
		got := svc.Store(context.Background(), "pod broken", "restart it", "")
		gt.S(t, got).Contains("Failed to store solution:")
	})
}

func TestRetrieveFailure(t *testing.T) {
	svc, _ := newService(t, &mockEmbedder{err: goerr.New("quota exceeded")})
	got := svc.Retrieve(context.Background(), "pod broken", 3)
	gt.S(t, got).Contains("Failed to retrieve solutions:")
}

func TestPurge(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"p1": {1, 0, 0},
		"p2": {0, 1, 0},
		"p3": {0, 0, 1},
		"p4": {1, 1, 0},
		"p5": {0, 1, 1},
	}}

	svc, _ := newService(t, embedder)
	for _, p := range []string{"p1", "p2", "p3", "p4", "p5"} {
		gt.Equal(t, svc.Store(context.Background(), p, "solution "+p, ""),
			"Solution stored successfully")
	}

	deleted := gt.R1(svc.Purge(context.Background())).NoError(t)
	gt.Equal(t, deleted, 5)

	records := gt.R1(svc.List(context.Background())).NoError(t)
	gt.A(t, records).Length(0)

	t.Run("purge of empty index", func(t *testing.T) {
		deleted := gt.R1(svc.Purge(context.Background())).NoError(t)
		gt.Equal(t, deleted, 0)
	})

	t.Run("retrieval after purge misses", func(t *testing.T) {
		gt.Equal(t, svc.Retrieve(context.Background(), "p1", 3), memory.NotFoundSentinel)
	})
}

func TestHandleMessage(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"pod oom killed": {1, 0, 0},
	}}
	svc, _ := newService(t, embedder)

	t.Run("structured store", func(t *testing.T) {
		req := memory.Request{
			Action:   memory.ActionStore,
			Problem:  "pod oom killed",
			Solution: "raise the memory limit",
		}
		gt.Equal(t, svc.HandleMessage(context.Background(), req.Encode()),
			"Solution stored successfully")
	})

	t.Run("structured retrieve", func(t *testing.T) {
		req := memory.Request{Action: memory.ActionRetrieve, Query: "pod oom killed"}
		reply := svc.HandleMessage(context.Background(), req.Encode())
		gt.S(t, reply).Contains("raise the memory limit")
	})

	t.Run("plain text is a retrieve query", func(t *testing.T) {
		reply := svc.HandleMessage(context.Background(), "pod oom killed")
		gt.S(t, reply).Contains("raise the memory limit")
	})

	key := model.NewSolutionKey("pod oom killed")
	records := gt.R1(svc.List(context.Background())).NoError(t)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0].Key, key)
}
