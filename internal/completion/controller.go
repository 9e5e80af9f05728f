// Package completion drives the generation engine: it streams partial
// output, halts at role-delimiter boundaries, cleans leaked delimiter text,
// and records the completed exchange in chat memory.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/finsight/finrag-go/internal/domain/entities"
	"github.com/finsight/finrag-go/internal/domain/ports"
	"github.com/finsight/finrag-go/internal/memory"
	"github.com/finsight/finrag-go/internal/prompt"
)

// FailureReply is the fixed, user-safe text returned when the generation
// engine fails. Engine failures stop at this boundary; they are not part of
// the error taxonomy below the completion layer.
const FailureReply = "Sorry, I could not generate a response right now. Please try again."

// ErrGeneration marks a reply as the failure text rather than a normal
// answer.
var ErrGeneration = errors.New("generation engine failure")

// Config holds completion settings.
type Config struct {
	// MaxTokens is the generation budget for the main completion.
	MaxTokens int
	// FlushBatch is how many tokens are buffered before flushing to the
	// partial-output callback. Values <= 1 flush per token.
	FlushBatch int
	// Temperature, TopP, and TopK are passed through to the engine.
	Temperature float64
	TopP        float64
	TopK        int
}

// Controller owns the main generation call for a session.
type Controller struct {
	engine ports.GenerationService
	mem    *memory.ChatMemory
	format prompt.Format
	cfg    Config
	logger *zap.Logger
}

// New creates a controller. A nil logger disables logging.
func New(engine ports.GenerationService, mem *memory.ChatMemory, format prompt.Format, cfg Config, logger *zap.Logger) *Controller {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{engine: engine, mem: mem, format: format, cfg: cfg, logger: logger}
}

// Generate runs the engine over the assembled prompt, forwarding partial
// output to onPartial in arrival order. On success it persists originalQuery
// and the cleaned reply as two turns, in that order, exactly once, and
// returns the cleaned reply. On engine failure it returns FailureReply with
// ErrGeneration; nothing is persisted for a failed exchange.
func (c *Controller) Generate(ctx context.Context, originalQuery string, p entities.Prompt, onPartial func(string)) (string, error) {
	rendered := c.format.Render(p)

	stream, err := c.engine.CompleteStream(ctx, rendered, ports.GenerateOptions{
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		TopK:        c.cfg.TopK,
		Stop:        c.format.StopSequences(),
	})
	if err != nil {
		c.logger.Error("starting completion stream", zap.Error(err))
		return FailureReply, ErrGeneration
	}

	full, err := c.consume(stream, onPartial)
	if err != nil {
		c.logger.Error("completion stream failed", zap.Error(err))
		return FailureReply, ErrGeneration
	}

	cleaned := c.clean(full)

	if err := c.mem.Append(ctx, entities.RoleUser, originalQuery); err != nil {
		return "", fmt.Errorf("persisting user turn: %w", err)
	}
	if err := c.mem.Append(ctx, entities.RoleAssistant, cleaned); err != nil {
		return "", fmt.Errorf("persisting assistant turn: %w", err)
	}
	return cleaned, nil
}

// consume drains the token stream, accumulating the full text and flushing
// batches to onPartial in arrival order.
func (c *Controller) consume(stream <-chan ports.StreamToken, onPartial func(string)) (string, error) {
	var full strings.Builder
	var batch strings.Builder
	pending := 0

	flush := func() {
		if pending == 0 {
			return
		}
		if onPartial != nil {
			onPartial(batch.String())
		}
		batch.Reset()
		pending = 0
	}

	for token := range stream {
		if token.Error != nil {
			return "", token.Error
		}
		if token.Content != "" {
			full.WriteString(token.Content)
			batch.WriteString(token.Content)
			pending++
			if pending >= c.cfg.FlushBatch || c.cfg.FlushBatch <= 1 {
				flush()
			}
		}
		if token.Done {
			break
		}
	}
	flush()
	return full.String(), nil
}

// clean cuts the reply at the first leaked stop sequence, which also drops
// any trailing duplicated user turn the engine ran into past its stop, then
// removes residual delimiter tokens.
func (c *Controller) clean(text string) string {
	for _, stop := range c.format.StopSequences() {
		if i := strings.Index(text, stop); i >= 0 {
			text = text[:i]
		}
	}
	for _, delim := range c.format.Delimiters() {
		text = strings.ReplaceAll(text, delim, "")
	}
	return strings.TrimSpace(text)
}
