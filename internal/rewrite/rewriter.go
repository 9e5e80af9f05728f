// Package rewrite decides whether a query is under-specified relative to the
// conversation history and, if so, asks the generation engine for a
// standalone version of it. Rewriting affects retrieval only; the original
// query is always what the model sees as the user's utterance.
package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/finsight/finrag-go/internal/domain/entities"
	"github.com/finsight/finrag-go/internal/domain/ports"
)

// Config holds the deployment-tunable knobs of the rewriter. None of the
// numeric values is load-bearing; they vary between deployments.
type Config struct {
	// TriggerWords are anaphoric reference words that mark a query as
	// ambiguous when matched as whole words, case-insensitively.
	TriggerWords []string
	// MinQueryRunes marks queries shorter than this as ambiguous.
	MinQueryRunes int
	// MinRewriteRunes is the minimum trimmed length for an accepted
	// rewrite.
	MinRewriteRunes int
	// HistoryWindow is how many recent turns are shown to the engine.
	HistoryWindow int
	// MaxTokens is the output budget for the rewrite call.
	MaxTokens int
}

// DefaultConfig returns the stock rewriter settings.
func DefaultConfig() Config {
	return Config{
		TriggerWords:    []string{"that", "this", "it", "those", "them"},
		MinQueryRunes:   12,
		MinRewriteRunes: 5,
		HistoryWindow:   6,
		MaxTokens:       64,
	}
}

// Result is the outcome of a rewrite attempt: a usable rewrite or the reason
// it failed.
type Result struct {
	Text string
	Err  error
}

// OrElse returns the rewritten text, or fallback when the attempt failed or
// produced nothing usable.
func (r Result) OrElse(fallback string) string {
	if r.Err != nil || r.Text == "" {
		return fallback
	}
	return r.Text
}

// Rewriter produces standalone retrieval queries from ambiguous ones.
type Rewriter struct {
	engine  ports.GenerationService
	cfg     Config
	trigger *regexp.Regexp
	logger  *zap.Logger
}

// New creates a rewriter. A nil logger disables logging.
func New(engine ports.GenerationService, cfg Config, logger *zap.Logger) *Rewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{
		engine:  engine,
		cfg:     cfg,
		trigger: compileTrigger(cfg.TriggerWords),
		logger:  logger,
	}
}

// IsAmbiguous reports whether the query needs history to be understood:
// it contains a trigger word, or it is too short to be self-contained.
func (r *Rewriter) IsAmbiguous(query string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < r.cfg.MinQueryRunes {
		return true
	}
	return r.trigger != nil && r.trigger.MatchString(query)
}

// RetrievalQuery returns the query to embed for retrieval: the original
// query, or an accepted standalone rewrite of it. An engine failure during
// rewriting is a soft failure; it is logged and the original query is used.
func (r *Rewriter) RetrievalQuery(ctx context.Context, query string, history []entities.ConversationTurn) string {
	if len(history) == 0 || !r.IsAmbiguous(query) {
		return query
	}

	result := r.Rewrite(ctx, query, history)
	if result.Err != nil {
		r.logger.Warn("query rewrite failed, using original query", zap.Error(result.Err))
	}
	return result.OrElse(query)
}

// Rewrite asks the engine for a standalone version of the query. The rewrite
// is accepted only if its trimmed length exceeds the configured minimum.
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []entities.ConversationTurn) Result {
	window := history
	if r.cfg.HistoryWindow > 0 && len(window) > r.cfg.HistoryWindow {
		window = window[len(window)-r.cfg.HistoryWindow:]
	}

	raw, err := r.engine.Complete(ctx, r.buildPrompt(query, window), ports.GenerateOptions{
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return Result{Err: fmt.Errorf("rewrite completion: %w", err)}
	}

	rewritten := stripQuoting(raw)
	if utf8.RuneCountInString(rewritten) <= r.cfg.MinRewriteRunes {
		return Result{Err: fmt.Errorf("rewrite too short: %q", rewritten)}
	}
	return Result{Text: rewritten}
}

// buildPrompt renders the history window as role: text lines followed by the
// rewrite instruction.
func (r *Rewriter) buildPrompt(query string, window []entities.ConversationTurn) string {
	var sb strings.Builder
	sb.WriteString("Rewrite the final user question as a single standalone question that needs no conversation context. Return only the rewritten question.\n\nConversation:\n")
	for _, turn := range window {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("\nFinal user question: ")
	sb.WriteString(query)
	return sb.String()
}

func compileTrigger(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func stripQuoting(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`“”‘’ \t\r\n")
}
