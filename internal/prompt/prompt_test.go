package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finrag-go/internal/domain/entities"
)

const systemText = "You are a personal finance assistant."

func candidates(texts ...string) []entities.RetrievalCandidate {
	var out []entities.RetrievalCandidate
	for i, text := range texts {
		out = append(out, entities.RetrievalCandidate{
			Unit:  entities.Unit{Text: text},
			Score: 1.0 - float64(i)*0.1,
		})
	}
	return out
}

func TestAssemble_SystemInstructionsOnlyOnFirstTurn(t *testing.T) {
	p := Assemble("hello", nil, nil, systemText)
	require.NotEmpty(t, p.Segments)
	assert.Equal(t, entities.RoleSystem, p.Segments[0].Role)
	assert.Equal(t, systemText, p.Segments[0].Text)

	hist := []entities.ConversationTurn{{Role: entities.RoleUser, Text: "earlier"}}
	p = Assemble("hello again", hist, nil, systemText)
	for _, seg := range p.Segments {
		assert.NotEqual(t, entities.RoleSystem, seg.Role)
	}
}

func TestAssemble_SystemInstructionsAppearExactlyOnce(t *testing.T) {
	p := Assemble("hello", nil, nil, systemText)
	rendered := GemmaFormat{}.Render(p)

	assert.Equal(t, 1, strings.Count(rendered, systemText))
}

func TestAssemble_PlaceholderExactlyWhenNoCandidates(t *testing.T) {
	p := Assemble("query", nil, nil, "")
	rendered := ChatMLFormat{}.Render(p)
	assert.Equal(t, 1, strings.Count(rendered, NoContextPlaceholder))

	p = Assemble("query", nil, candidates("a unit"), "")
	rendered = ChatMLFormat{}.Render(p)
	assert.NotContains(t, rendered, NoContextPlaceholder)
}

func TestAssemble_CandidatesInRankedOrder(t *testing.T) {
	p := Assemble("query", nil, candidates("first unit", "second unit"), "")

	user := p.Segments[len(p.Segments)-1].Text
	assert.Contains(t, user, "Source Chunk 1 (1.00): first unit")
	assert.Contains(t, user, "Source Chunk 2 (0.90): second unit")
	assert.Less(t, strings.Index(user, "first unit"), strings.Index(user, "second unit"))
}

func TestAssemble_HistoryInChronologicalOrder(t *testing.T) {
	hist := []entities.ConversationTurn{
		{Role: entities.RoleUser, Text: "oldest"},
		{Role: entities.RoleAssistant, Text: "middle"},
		{Role: entities.RoleUser, Text: "newest"},
	}
	p := Assemble("now", hist, nil, systemText)

	require.Len(t, p.Segments, 4)
	assert.Equal(t, "oldest", p.Segments[0].Text)
	assert.Equal(t, entities.RoleAssistant, p.Segments[1].Role)
	assert.Equal(t, "newest", p.Segments[2].Text)
	assert.Contains(t, p.Segments[3].Text, "Question: now")
}

func TestAssemble_UserTurnCarriesOriginalQuery(t *testing.T) {
	// The rewritten retrieval query must never replace the user's actual
	// utterance.
	original := "How much did I spend on that?"
	p := Assemble(original, nil, candidates("October groceries were $140"), "")

	user := p.Segments[len(p.Segments)-1].Text
	assert.Contains(t, user, "Question: "+original)
}

func TestGemmaFormat_RoleDelimiters(t *testing.T) {
	p := Assemble("question", []entities.ConversationTurn{
		{Role: entities.RoleUser, Text: "hi"},
		{Role: entities.RoleAssistant, Text: "hello"},
	}, nil, "")
	rendered := GemmaFormat{}.Render(p)

	assert.Contains(t, rendered, "<start_of_turn>user\nhi<end_of_turn>")
	assert.Contains(t, rendered, "<start_of_turn>model\nhello<end_of_turn>")
	assert.True(t, strings.HasSuffix(rendered, "<start_of_turn>model\n"))
}

func TestGemmaFormat_FoldsSystemIntoUserRole(t *testing.T) {
	p := Assemble("question", nil, nil, systemText)
	rendered := GemmaFormat{}.Render(p)

	assert.Contains(t, rendered, "<start_of_turn>user\n"+systemText)
	assert.NotContains(t, rendered, "system")
}

func TestChatMLFormat_RoleDelimiters(t *testing.T) {
	p := Assemble("question", nil, nil, systemText)
	rendered := ChatMLFormat{}.Render(p)

	assert.Contains(t, rendered, "<|im_start|>system\n"+systemText+"<|im_end|>")
	assert.True(t, strings.HasSuffix(rendered, "<|im_start|>assistant\n"))
}

func TestForEngine(t *testing.T) {
	f, err := ForEngine("gemma")
	require.NoError(t, err)
	assert.IsType(t, GemmaFormat{}, f)

	f, err = ForEngine("ChatML")
	require.NoError(t, err)
	assert.IsType(t, ChatMLFormat{}, f)

	_, err = ForEngine("unknown-engine")
	assert.Error(t, err)
}

func TestStopSequencesMatchDelimiters(t *testing.T) {
	assert.Contains(t, GemmaFormat{}.StopSequences(), "<end_of_turn>")
	assert.Contains(t, ChatMLFormat{}.StopSequences(), "<|im_end|>")
}
