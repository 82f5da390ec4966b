// Package retriever ranks stored chunks against a query embedding.
package retriever

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"courseguide/internal/domain"
)

// DefaultTopK is the number of chunks handed to the prompt builder.
const DefaultTopK = 3

// Source is the read-only view of the chunk table the retriever needs.
type Source interface {
	All() []domain.Chunk
}

// Rank scores every chunk by cosine similarity to query and returns the k best,
// highest first. Equal scores keep their original row order.
func Rank(query []float64, store Source, k int) ([]domain.ScoredChunk, error) {
	if store == nil {
		return nil, &domain.RetrievalError{Err: errors.New("no chunk store")}
	}
	chunks := store.All()
	if len(chunks) == 0 {
		return nil, &domain.RetrievalError{Err: errors.New("chunk store is empty")}
	}
	if k <= 0 {
		k = DefaultTopK
	}
	qNorm := norm(query)
	scores := make([]float64, len(chunks))
	for i := range chunks {
		if len(chunks[i].Embedding) != len(query) {
			return nil, &domain.RetrievalError{Err: fmt.Errorf(
				"query has %d dimensions but chunk %d has %d", len(query), i, len(chunks[i].Embedding))}
		}
		scores[i] = cosine(query, chunks[i].Embedding, qNorm)
	}
	idxs := argsortDesc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.ScoredChunk, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.ScoredChunk{Chunk: chunks[j], Score: scores[j]})
	}
	return results, nil
}

// cosine treats a zero-length vector as orthogonal to everything.
func cosine(a, b []float64, aNorm float64) float64 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	return dot(a, b) / (aNorm * bNorm)
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool { return vals[idxs[i]] > vals[idxs[j]] })
	return idxs
}
