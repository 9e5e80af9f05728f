// Package retrieve orchestrates query rewriting, embedding, and index lookup
// into a ranked, filtered set of relevant units.
package retrieve

import (
	"context"
	"fmt"

	"github.com/finsight/finrag-go/internal/domain/entities"
	"github.com/finsight/finrag-go/internal/domain/ports"
	"github.com/finsight/finrag-go/internal/index"
	"github.com/finsight/finrag-go/internal/rewrite"
)

// Config holds retrieval settings. Threshold may be negative to disable
// relevance filtering and rely on TopK alone.
type Config struct {
	TopK      int
	Threshold float64
}

// Retriever turns a user query plus history into retrieval candidates.
type Retriever struct {
	rewriter *rewrite.Rewriter
	embedder ports.EmbeddingService
	idx      *index.Index
	cfg      Config
}

// New creates a retriever.
func New(rewriter *rewrite.Rewriter, embedder ports.EmbeddingService, idx *index.Index, cfg Config) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Retriever{rewriter: rewriter, embedder: embedder, idx: idx, cfg: cfg}
}

// Retrieve returns the ranked candidates for the query, along with the
// retrieval query that was actually embedded (the original query, or its
// standalone rewrite). An empty candidate list is a valid outcome, not an
// error.
func (r *Retriever) Retrieve(ctx context.Context, query string, history []entities.ConversationTurn) ([]entities.RetrievalCandidate, string, error) {
	retrievalQuery := r.rewriter.RetrievalQuery(ctx, query, history)

	vector, err := r.embedder.Embed(ctx, retrievalQuery)
	if err != nil {
		return nil, retrievalQuery, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.idx.Search(ctx, vector, r.cfg.TopK, r.cfg.Threshold)
	if err != nil {
		return nil, retrievalQuery, fmt.Errorf("searching index: %w", err)
	}
	return candidates, retrievalQuery, nil
}
