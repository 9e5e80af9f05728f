// Package usecases contains the application workflows: corpus ingestion and
// query answering. They orchestrate the component packages through the port
// interfaces and hold no framework code.
package usecases

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/finsight/finrag-go/internal/chunker"
	"github.com/finsight/finrag-go/internal/domain/ports"
	"github.com/finsight/finrag-go/internal/index"
)

// ErrNoUnits reports an ingestion source that produced no units. The caller
// must treat this as a failed ingestion, never mark the source as done.
var ErrNoUnits = errors.New("source produced no units")

// IngestUseCase turns a source into embedded units in the vector index.
type IngestUseCase struct {
	embedder ports.EmbeddingService
	idx      *index.Index
	store    ports.Store
	logger   *zap.Logger

	// OnUnitStored, when set, is called after each unit lands in the
	// index, with the number done and the total. The CLI hangs its
	// progress bar here.
	OnUnitStored func(done, total int)
}

// NewIngestUseCase creates an ingestion workflow. A nil logger disables
// logging.
func NewIngestUseCase(embedder ports.EmbeddingService, idx *index.Index, store ports.Store, logger *zap.Logger) *IngestUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{embedder: embedder, idx: idx, store: store, logger: logger}
}

// Ingest splits the source with the explicitly chosen strategy, embeds every
// unit, and inserts the (text, vector) pairs into the index. It returns the
// number of units stored.
func (uc *IngestUseCase) Ingest(ctx context.Context, kind chunker.Kind, cfg chunker.Config, src chunker.Source) (int, error) {
	splitter, err := chunker.New(kind, cfg)
	if err != nil {
		return 0, err
	}

	texts, err := splitter.Split(src)
	if err != nil {
		return 0, fmt.Errorf("splitting source: %w", err)
	}
	if len(texts) == 0 {
		return 0, ErrNoUnits
	}

	for i, text := range texts {
		vector, err := uc.embedder.Embed(ctx, text)
		if err != nil {
			return i, fmt.Errorf("embedding unit %d: %w", i, err)
		}
		if _, err := uc.idx.Insert(ctx, text, vector); err != nil {
			return i, fmt.Errorf("inserting unit %d: %w", i, err)
		}
		if uc.OnUnitStored != nil {
			uc.OnUnitStored(i+1, len(texts))
		}
	}

	uc.logger.Info("source ingested", zap.Int("units", len(texts)))
	return len(texts), nil
}

// IngestOnce ingests the source only if the given flag has never been set,
// then sets it. It returns the unit count and whether ingestion actually
// ran. A failed ingestion leaves the flag unset.
func (uc *IngestUseCase) IngestOnce(ctx context.Context, flag string, kind chunker.Kind, cfg chunker.Config, src chunker.Source) (int, bool, error) {
	_, done, err := uc.store.GetFlag(ctx, flag)
	if err != nil {
		return 0, false, fmt.Errorf("reading flag %q: %w", flag, err)
	}
	if done {
		return 0, false, nil
	}

	n, err := uc.Ingest(ctx, kind, cfg, src)
	if err != nil {
		return 0, false, err
	}
	if err := uc.store.SetFlag(ctx, flag, "done"); err != nil {
		return n, true, fmt.Errorf("setting flag %q: %w", flag, err)
	}
	return n, true, nil
}

// DeleteUnit removes one unit from the index.
func (uc *IngestUseCase) DeleteUnit(ctx context.Context, id string) error {
	return uc.idx.Delete(ctx, id)
}

// ClearUnits removes the whole corpus.
func (uc *IngestUseCase) ClearUnits(ctx context.Context) error {
	return uc.idx.Clear(ctx)
}
