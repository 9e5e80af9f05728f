// Package ports defines the interfaces for external capabilities consumed by
// the retrieval core: the embedding model, the generation engine, and the
// persistent store. Use cases depend on these abstractions, adapters
// implement them.
package ports

import (
	"context"

	"github.com/finsight/finrag-go/internal/domain/entities"
)

// EmbeddingService maps text to a fixed-length vector. Dimensionality is
// fixed per deployment.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerateOptions controls a single completion call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int
	// Stop lists strings at which the engine must halt generation.
	Stop []string
}

// StreamToken is a single token in a streaming completion.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// GenerationService drives the text-generation engine.
type GenerationService interface {
	// Complete produces the full completion for a prompt.
	Complete(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// CompleteStream produces a one-pass, ordered, finite stream of
	// tokens. The channel is closed after the token carrying Done or an
	// Error.
	CompleteStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamToken, error)
}

// Store is the persistence capability: text+vector units, role-tagged
// conversation turns, and opaque bookkeeping flags. Implementations must be
// safe for use from a single logical request stream; operations are applied
// in issue order.
type Store interface {
	// PutUnit appends a unit and returns its id.
	PutUnit(ctx context.Context, text string, vector []float32) (string, error)

	// ListUnits returns all units in insertion order, oldest first.
	ListUnits(ctx context.Context) ([]entities.Unit, error)

	// DeleteUnit removes a single unit by id.
	DeleteUnit(ctx context.Context, id string) error

	// ClearUnits removes all units.
	ClearUnits(ctx context.Context) error

	// AppendTurn appends a conversation turn.
	AppendTurn(ctx context.Context, role entities.Role, text string) error

	// ListTurns returns the most recent limit turns, oldest first.
	// limit == 0 returns nothing; limit < 0 returns everything.
	ListTurns(ctx context.Context, limit int) ([]entities.ConversationTurn, error)

	// ClearTurns removes all conversation turns.
	ClearTurns(ctx context.Context) error

	// GetFlag returns the value for key and whether it was present.
	GetFlag(ctx context.Context, key string) (string, bool, error)

	// SetFlag stores a key/value pair, overwriting any previous value.
	SetFlag(ctx context.Context, key, value string) error
}

// FileWatcher monitors a directory for document changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events until ctx
	// is cancelled.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent is a file system change seen by a watcher.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
