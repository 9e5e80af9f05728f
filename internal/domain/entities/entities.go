// Package entities contains the core domain objects of the retrieval engine.
// They carry no knowledge of storage, embedding models, or the generation
// engine.
package entities

import "time"

// Unit is an immutable semantic unit of the indexed corpus: a piece of text
// together with its embedding vector. Units are created at ingestion time and
// never mutated; they are removed individually or in bulk by explicit user
// action.
type Unit struct {
	ID     string
	Text   string
	Vector []float32
	// Seq is the insertion sequence number assigned by the store. Newer
	// units have larger values; similarity ties are broken in favor of
	// the most recently inserted unit.
	Seq int64
}

// Role tags a conversation turn with its speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RoleSystem tags fixed system instructions inside an assembled prompt.
// It never appears in chat memory.
const RoleSystem Role = "system"

// ConversationTurn is one role-tagged message in the session history,
// ordered by creation time.
type ConversationTurn struct {
	Role Role
	Text string
}

// RetrievalCandidate pairs a unit with its cosine similarity to the query
// vector. Derived at query time, never persisted.
type RetrievalCandidate struct {
	Unit  Unit
	Score float64
}

// Segment is one role-tagged piece of an assembled prompt.
type Segment struct {
	Role Role
	Text string
}

// Prompt is the ordered sequence of segments handed to a prompt format for
// serialization. Derived at query time, never persisted.
type Prompt struct {
	Segments []Segment
}

// Ledger is a structured ingestion source: an account-holder profile plus
// dated entries grouped under one or more accounts.
type Ledger struct {
	Profile  string
	Accounts []Account
}

// Account is one named account with its dated entries.
type Account struct {
	Name    string
	Entries []Entry
}

// Entry is a single dated ledger movement.
type Entry struct {
	Date        time.Time
	Description string
	Amount      float64
	Balance     float64
}
