package usecases

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/finsight/finrag-go/internal/completion"
	"github.com/finsight/finrag-go/internal/memory"
	"github.com/finsight/finrag-go/internal/prompt"
	"github.com/finsight/finrag-go/internal/retrieve"
)

// AnswerUseCase is the single query-time entry point: history, rewriting,
// retrieval, prompt assembly, and streaming completion in one sequential
// chain.
type AnswerUseCase struct {
	mem        *memory.ChatMemory
	retriever  *retrieve.Retriever
	controller *completion.Controller
	system     string
	historyLim int
	logger     *zap.Logger

	// The generation engine holds mutable inference state, so at most one
	// generation (rewrite or main) may be in flight per session.
	engineMu sync.Mutex
}

// NewAnswerUseCase creates the answer workflow. historyLimit bounds how many
// recent turns are carried into the prompt; a nil logger disables logging.
func NewAnswerUseCase(mem *memory.ChatMemory, retriever *retrieve.Retriever, controller *completion.Controller, system string, historyLimit int, logger *zap.Logger) *AnswerUseCase {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerUseCase{
		mem:        mem,
		retriever:  retriever,
		controller: controller,
		system:     system,
		historyLim: historyLimit,
		logger:     logger,
	}
}

// AnswerQuery answers one user query, streaming partial output to onPartial
// when provided. Store failures terminate the call; a generation-engine
// failure yields the fixed failure reply with completion.ErrGeneration.
func (uc *AnswerUseCase) AnswerQuery(ctx context.Context, query string, onPartial func(string)) (string, error) {
	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	history, err := uc.mem.Recent(ctx, uc.historyLim)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}

	candidates, retrievalQuery, err := uc.retriever.Retrieve(ctx, query, history)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	uc.logger.Debug("retrieval finished",
		zap.String("retrieval_query", retrievalQuery),
		zap.Int("candidates", len(candidates)),
	)

	p := prompt.Assemble(query, history, candidates, uc.system)
	return uc.controller.Generate(ctx, query, p, onPartial)
}

// ResetSession clears the conversation history. The surrounding application
// calls this at session start.
func (uc *AnswerUseCase) ResetSession(ctx context.Context) error {
	return uc.mem.Clear(ctx)
}
