package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/finsight/finrag-go/internal/domain/entities"
)

// SQLiteStore implements ports.Store with SQLite persistence: units with
// JSON-encoded vectors, conversation turns, and bookkeeping flags. It is an
// explicitly constructed handle with an open -> schema -> ready lifecycle;
// callers pass it by reference, there is no ambient global store.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open creates the data directory if needed, opens the database, and applies
// the schema. The returned store is ready for use.
func Open(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "finrag.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// initSchema creates the tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS units (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS turns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS flags (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// PutUnit appends a unit and returns its id.
func (s *SQLiteStore) PutUnit(ctx context.Context, text string, vector []float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return "", fmt.Errorf("encoding vector: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO units (id, text, vector) VALUES (?, ?, ?)",
		id, text, vectorJSON,
	)
	if err != nil {
		return "", fmt.Errorf("inserting unit: %w", err)
	}
	return id, nil
}

// ListUnits returns all units in insertion order, oldest first.
func (s *SQLiteStore) ListUnits(ctx context.Context) ([]entities.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, id, text, vector FROM units ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []entities.Unit
	for rows.Next() {
		var unit entities.Unit
		var vectorJSON []byte
		if err := rows.Scan(&unit.Seq, &unit.ID, &unit.Text, &vectorJSON); err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		if err := json.Unmarshal(vectorJSON, &unit.Vector); err != nil {
			return nil, fmt.Errorf("decoding vector for unit %s: %w", unit.ID, err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// DeleteUnit removes a single unit by id.
func (s *SQLiteStore) DeleteUnit(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM units WHERE id = ?", id)
	return err
}

// ClearUnits removes all units.
func (s *SQLiteStore) ClearUnits(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM units")
	return err
}

// AppendTurn appends a conversation turn.
func (s *SQLiteStore) AppendTurn(ctx context.Context, role entities.Role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO turns (role, text) VALUES (?, ?)", string(role), text)
	return err
}

// ListTurns returns the most recent limit turns, oldest first. limit == 0
// returns nothing; limit < 0 returns everything.
func (s *SQLiteStore) ListTurns(ctx context.Context, limit int) ([]entities.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit == 0 {
		return nil, nil
	}

	query := "SELECT role, text FROM turns ORDER BY seq DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []entities.ConversationTurn
	for rows.Next() {
		var turn entities.ConversationTurn
		var role string
		if err := rows.Scan(&role, &turn.Text); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn.Role = entities.Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows came newest-first; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// ClearTurns removes all conversation turns.
func (s *SQLiteStore) ClearTurns(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM turns")
	return err
}

// GetFlag returns the value for key and whether it was present.
func (s *SQLiteStore) GetFlag(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM flags WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetFlag stores a key/value pair, overwriting any previous value.
func (s *SQLiteStore) SetFlag(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO flags (key, value) VALUES (?, ?)", key, value)
	return err
}

// UnitCount returns the number of stored units.
func (s *SQLiteStore) UnitCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM units").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
