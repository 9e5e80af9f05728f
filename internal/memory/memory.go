// Package memory provides the bounded, ordered store of conversation turns.
package memory

import (
	"context"

	"github.com/finsight/finrag-go/internal/domain/entities"
	"github.com/finsight/finrag-go/internal/domain/ports"
)

// ChatMemory records role-tagged conversation turns through the Store port.
// It imposes no automatic expiry; the surrounding application clears it at
// the start of each session.
type ChatMemory struct {
	store ports.Store
}

// New creates a chat memory backed by the given store.
func New(store ports.Store) *ChatMemory {
	return &ChatMemory{store: store}
}

// Append records one turn.
func (m *ChatMemory) Append(ctx context.Context, role entities.Role, text string) error {
	return m.store.AppendTurn(ctx, role, text)
}

// Recent returns the most recent limit turns, oldest first. A limit of 0
// returns an empty sequence.
func (m *ChatMemory) Recent(ctx context.Context, limit int) ([]entities.ConversationTurn, error) {
	if limit == 0 {
		return nil, nil
	}
	return m.store.ListTurns(ctx, limit)
}

// Clear removes all turns.
func (m *ChatMemory) Clear(ctx context.Context) error {
	return m.store.ClearTurns(ctx)
}
