// Package index provides the vector index: persistent (unit, vector) pairs
// with brute-force cosine similarity search. The scan is O(N*d) per query,
// which is acceptable for a single user's personal corpus; no approximate
// variant is provided.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/finsight/finrag-go/internal/domain/entities"
	"github.com/finsight/finrag-go/internal/domain/ports"
)

// Index stores units through the Store port and answers nearest-neighbor
// queries by cosine similarity. Embedding dimensionality is fixed per
// deployment; inserting a vector of a different length is an error.
type Index struct {
	store ports.Store

	mu  sync.Mutex
	dim int // 0 until the first vector is seen
}

// New creates an index backed by the given store.
func New(store ports.Store) *Index {
	return &Index{store: store}
}

// Insert appends a unit and returns its id.
func (x *Index) Insert(ctx context.Context, text string, vector []float32) (string, error) {
	if err := x.checkDimension(ctx, vector); err != nil {
		return "", err
	}
	return x.store.PutUnit(ctx, text, vector)
}

// All returns every stored unit in insertion order.
func (x *Index) All(ctx context.Context) ([]entities.Unit, error) {
	return x.store.ListUnits(ctx)
}

// Delete removes a single unit by id.
func (x *Index) Delete(ctx context.Context, id string) error {
	return x.store.DeleteUnit(ctx, id)
}

// Clear removes all units.
func (x *Index) Clear(ctx context.Context) error {
	x.mu.Lock()
	x.dim = 0
	x.mu.Unlock()
	return x.store.ClearUnits(ctx)
}

// Search scans every stored unit, keeps those scoring at or above threshold,
// and returns the top k ordered by descending score with ties broken by most
// recent insertion. Pass a negative threshold to disable filtering and rely
// on k alone. k <= 0 yields no results.
func (x *Index) Search(ctx context.Context, vector []float32, k int, threshold float64) ([]entities.RetrievalCandidate, error) {
	if k <= 0 {
		return nil, nil
	}

	units, err := x.store.ListUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}

	var candidates []entities.RetrievalCandidate
	for _, unit := range units {
		score := Cosine(vector, unit.Vector)
		if score < threshold {
			continue
		}
		candidates = append(candidates, entities.RetrievalCandidate{Unit: unit, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Unit.Seq > candidates[j].Unit.Seq
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// checkDimension learns the deployment dimensionality from the first vector
// seen (stored or inserted) and rejects anything else afterwards.
func (x *Index) checkDimension(ctx context.Context, vector []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dim == 0 {
		units, err := x.store.ListUnits(ctx)
		if err != nil {
			return fmt.Errorf("listing units: %w", err)
		}
		if len(units) > 0 {
			x.dim = len(units[0].Vector)
		} else {
			x.dim = len(vector)
		}
	}
	if len(vector) != x.dim {
		return fmt.Errorf("vector has %d dimensions, index expects %d", len(vector), x.dim)
	}
	return nil
}
