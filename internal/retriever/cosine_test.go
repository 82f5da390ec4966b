package retriever

import (
	"errors"
	"math"
	"testing"

	"courseguide/internal/domain"
)

type sliceSource []domain.Chunk

func (s sliceSource) All() []domain.Chunk { return s }

func storeOf(vectors ...[]float64) sliceSource {
	out := make(sliceSource, len(vectors))
	for i, v := range vectors {
		out[i] = domain.Chunk{Index: i, Title: "Intro", Number: 1, Embedding: v}
	}
	return out
}

func indexes(res []domain.ScoredChunk) []int {
	out := make([]int, len(res))
	for i, r := range res {
		out[i] = r.Chunk.Index
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRank_TopKSortedDescending(t *testing.T) {
	store := storeOf(
		[]float64{1, 0},
		[]float64{0, 1},
		[]float64{1, 1},
		[]float64{-1, 0},
		[]float64{2, 0.1},
	)
	res, err := Rank([]float64{1, 0}, store, 3)
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	for i := 1; i < len(res); i++ {
		if res[i].Score > res[i-1].Score {
			t.Errorf("results not sorted: %v", res)
		}
	}
	if got := indexes(res); !equalInts(got, []int{0, 4, 2}) {
		t.Errorf("unexpected order %v", got)
	}
	if math.Abs(res[0].Score-1) > 1e-9 {
		t.Errorf("expected cosine 1 for identical direction, got %f", res[0].Score)
	}
}

func TestRank_KLargerThanStore(t *testing.T) {
	store := storeOf([]float64{1, 0}, []float64{0, 1})
	res, err := Rank([]float64{1, 1}, store, 10)
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if len(res) != 2 {
		t.Errorf("expected all 2 rows, got %d", len(res))
	}
}

func TestRank_DefaultK(t *testing.T) {
	store := storeOf([]float64{1}, []float64{2}, []float64{3}, []float64{4})
	res, err := Rank([]float64{1}, store, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != DefaultTopK {
		t.Errorf("expected %d results, got %d", DefaultTopK, len(res))
	}
}

func TestRank_TiesKeepOriginalOrder(t *testing.T) {
	store := storeOf(
		[]float64{0, 1},
		[]float64{1, 0},
		[]float64{2, 0},
		[]float64{0, 3},
		[]float64{5, 0},
	)
	first, err := Rank([]float64{1, 0}, store, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := indexes(first); !equalInts(got, []int{1, 2, 4, 0, 3}) {
		t.Errorf("ties not broken by index: %v", got)
	}
	for i := 0; i < 20; i++ {
		again, _ := Rank([]float64{1, 0}, store, 5)
		if !equalInts(indexes(again), indexes(first)) {
			t.Fatalf("ranking not deterministic: %v vs %v", indexes(again), indexes(first))
		}
	}
}

func TestRank_ZeroQueryVector(t *testing.T) {
	store := storeOf([]float64{1, 0}, []float64{0, 1}, []float64{1, 1})
	res, err := Rank([]float64{0, 0}, store, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := indexes(res); !equalInts(got, []int{0, 1}) {
		t.Errorf("expected index order for all-zero scores, got %v", got)
	}
	if res[0].Score != 0 {
		t.Errorf("expected zero score, got %f", res[0].Score)
	}
}

func TestRank_Errors(t *testing.T) {
	var retrievalErr *domain.RetrievalError

	_, err := Rank([]float64{1}, storeOf(), 3)
	if !errors.As(err, &retrievalErr) {
		t.Errorf("empty store: expected RetrievalError, got %v", err)
	}

	_, err = Rank([]float64{1, 0, 0}, storeOf([]float64{1, 0}), 3)
	if !errors.As(err, &retrievalErr) {
		t.Errorf("dimension mismatch: expected RetrievalError, got %v", err)
	}

	_, err = Rank([]float64{1}, nil, 3)
	if !errors.As(err, &retrievalErr) {
		t.Errorf("nil store: expected RetrievalError, got %v", err)
	}
}

func TestRank_CourseScenario(t *testing.T) {
	// five chunks of video "Intro"; the query is closest to chunk 3 (index 2)
	store := storeOf(
		[]float64{0.1, 0.9, 0.0},
		[]float64{0.5, 0.5, 0.1},
		[]float64{0.95, 0.05, 0.0},
		[]float64{0.0, 0.0, 1.0},
		[]float64{0.7, 0.3, 0.2},
	)
	res, err := Rank([]float64{1, 0, 0}, store, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := indexes(res); !equalInts(got, []int{2, 4, 1}) {
		t.Errorf("unexpected ranking %v", got)
	}
}
