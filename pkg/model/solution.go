package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type RecordType string

const (
	// RecordTypeK8sSolution is the only record kind for now. The field is
	// persisted so future kinds can coexist in the same index.
	RecordTypeK8sSolution RecordType = "k8s_solution"
)

type SolutionKey string

// NewSolutionKey derives a stable content-addressed key from the problem
// text. The text is lowercased and its whitespace collapsed before hashing,
// so case and spacing variants of the same problem overwrite one record.
// Semantically similar but differently worded problems get distinct keys
// and are reconciled by distance ranking at query time.
func NewSolutionKey(problem string) SolutionKey {
	normalized := strings.ToLower(strings.Join(strings.Fields(problem), " "))
	sum := sha256.Sum256([]byte(normalized))
	return SolutionKey("solution_" + hex.EncodeToString(sum[:]))
}

// SolutionRecord is the unit of stored troubleshooting knowledge.
// Records are never mutated in place: re-storing the same problem text
// overwrites by key, and the only destruction path is an explicit purge.
type SolutionRecord struct {
	Key       SolutionKey
	Problem   string
	Solution  string
	Resources string
	Embedding []float32
	Type      RecordType
	CreatedAt time.Time
}

// Content renders the record as the labeled document text that is stored
// alongside the vector and returned to users on retrieval.
func (r *SolutionRecord) Content() string {
	return "Problem: " + r.Problem + "\nSolution: " + r.Solution + "\nResources: " + r.Resources
}

// Validate checks required fields before the record is embedded and stored
func (r *SolutionRecord) Validate() error {
	if strings.TrimSpace(r.Problem) == "" {
		return goerr.New("problem text is empty")
	}
	if r.Solution == "" {
		return goerr.New("solution text is empty", goerr.V("key", r.Key))
	}
	return nil
}

// QueryHit is one similarity search result. Distance is the index's
// metric (cosine): lower means more similar.
type QueryHit struct {
	Key      SolutionKey
	Distance float64
	Record   *SolutionRecord
}
