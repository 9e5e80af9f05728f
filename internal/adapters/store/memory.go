// Package store provides Store adapters: a persistent SQLite store and an
// in-memory store for ephemeral sessions and tests.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/finsight/finrag-go/internal/domain/entities"
)

// MemoryStore implements ports.Store entirely in memory. Nothing survives a
// restart; it backs throwaway sessions and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	units []entities.Unit
	turns []entities.ConversationTurn
	flags map[string]string
	seq   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: make(map[string]string)}
}

// PutUnit appends a unit and returns its id.
func (s *MemoryStore) PutUnit(ctx context.Context, text string, vector []float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	unit := entities.Unit{
		ID:     uuid.NewString(),
		Text:   text,
		Vector: append([]float32(nil), vector...),
		Seq:    s.seq,
	}
	s.units = append(s.units, unit)
	return unit.ID, nil
}

// ListUnits returns all units in insertion order.
func (s *MemoryStore) ListUnits(ctx context.Context) ([]entities.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Unit(nil), s.units...), nil
}

// DeleteUnit removes a single unit by id. Unknown ids are a no-op.
func (s *MemoryStore) DeleteUnit(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, unit := range s.units {
		if unit.ID == id {
			s.units = append(s.units[:i], s.units[i+1:]...)
			return nil
		}
	}
	return nil
}

// ClearUnits removes all units.
func (s *MemoryStore) ClearUnits(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = nil
	return nil
}

// AppendTurn appends a conversation turn.
func (s *MemoryStore) AppendTurn(ctx context.Context, role entities.Role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, entities.ConversationTurn{Role: role, Text: text})
	return nil
}

// ListTurns returns the most recent limit turns, oldest first.
func (s *MemoryStore) ListTurns(ctx context.Context, limit int) ([]entities.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit == 0 {
		return nil, nil
	}
	start := 0
	if limit > 0 && len(s.turns) > limit {
		start = len(s.turns) - limit
	}
	return append([]entities.ConversationTurn(nil), s.turns[start:]...), nil
}

// ClearTurns removes all conversation turns.
func (s *MemoryStore) ClearTurns(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	return nil
}

// GetFlag returns the value for key and whether it was present.
func (s *MemoryStore) GetFlag(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.flags[key]
	return value, ok, nil
}

// SetFlag stores a key/value pair.
func (s *MemoryStore) SetFlag(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = value
	return nil
}
