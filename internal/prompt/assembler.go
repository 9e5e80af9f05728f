package prompt

import (
	"fmt"
	"strings"

	"github.com/finsight/finrag-go/internal/domain/entities"
)

// NoContextPlaceholder is substituted for the retrieved-context block when
// retrieval produced nothing, so the model is never handed a silently empty
// context section.
const NoContextPlaceholder = "no relevant documents found; answer from general knowledge only"

// Assemble builds the model-ready prompt: system instructions (first turn of
// a session only), history in chronological order, then the current user turn
// with the retrieved context embedded. The user turn carries the original
// query text, never a rewritten retrieval query. Assemble is a pure function
// of its inputs.
func Assemble(query string, history []entities.ConversationTurn, candidates []entities.RetrievalCandidate, systemInstructions string) entities.Prompt {
	var segments []entities.Segment

	// First turn of the session is the only place fixed policy is stated.
	if len(history) == 0 && systemInstructions != "" {
		segments = append(segments, entities.Segment{Role: entities.RoleSystem, Text: systemInstructions})
	}

	for _, turn := range history {
		segments = append(segments, entities.Segment{Role: turn.Role, Text: turn.Text})
	}

	segments = append(segments, entities.Segment{
		Role: entities.RoleUser,
		Text: renderContext(candidates) + "\n\nQuestion: " + query,
	})

	return entities.Prompt{Segments: segments}
}

// renderContext renders the ranked candidates as a labeled block, or the
// placeholder statement when nothing was retrieved.
func renderContext(candidates []entities.RetrievalCandidate) string {
	if len(candidates) == 0 {
		return "Context: " + NoContextPlaceholder
	}

	var sb strings.Builder
	sb.WriteString("Context:")
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("\nSource Chunk %d (%.2f): %s", i+1, c.Score, c.Unit.Text))
	}
	return sb.String()
}
