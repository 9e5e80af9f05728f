// Package prompt renders system instructions, retrieved units, and recent
// history into the single linear text sequence a generation engine expects.
package prompt

import (
	"fmt"
	"strings"

	"github.com/finsight/finrag-go/internal/domain/entities"
)

// Format serializes an assembled prompt using one engine family's
// role-delimiter convention, and supplies the stop sequences that halt
// generation exactly at the next-turn boundary.
type Format interface {
	Render(p entities.Prompt) string
	StopSequences() []string
	// Delimiters lists every marker token of the convention, for
	// scrubbing leaked markers out of a finished reply.
	Delimiters() []string
}

// ForEngine returns the format for an engine family name.
func ForEngine(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "gemma":
		return GemmaFormat{}, nil
	case "chatml", "qwen":
		return ChatMLFormat{}, nil
	default:
		return nil, fmt.Errorf("no prompt format for engine %q", name)
	}
}

// GemmaFormat serializes prompts with Gemma's start/end-of-turn markers.
// Gemma has no system role, so system segments are folded into a user turn.
type GemmaFormat struct{}

// Render implements Format.
func (GemmaFormat) Render(p entities.Prompt) string {
	var sb strings.Builder
	for _, seg := range p.Segments {
		role := "user"
		if seg.Role == entities.RoleAssistant {
			role = "model"
		}
		sb.WriteString("<start_of_turn>")
		sb.WriteString(role)
		sb.WriteString("\n")
		sb.WriteString(seg.Text)
		sb.WriteString("<end_of_turn>\n")
	}
	sb.WriteString("<start_of_turn>model\n")
	return sb.String()
}

// StopSequences implements Format.
func (GemmaFormat) StopSequences() []string {
	return []string{"<end_of_turn>", "<start_of_turn>user"}
}

// Delimiters implements Format.
func (GemmaFormat) Delimiters() []string {
	return []string{"<start_of_turn>user", "<start_of_turn>model", "<start_of_turn>", "<end_of_turn>"}
}

// ChatMLFormat serializes prompts with ChatML im_start/im_end markers.
type ChatMLFormat struct{}

// Render implements Format.
func (ChatMLFormat) Render(p entities.Prompt) string {
	var sb strings.Builder
	for _, seg := range p.Segments {
		sb.WriteString("<|im_start|>")
		sb.WriteString(string(seg.Role))
		sb.WriteString("\n")
		sb.WriteString(seg.Text)
		sb.WriteString("<|im_end|>\n")
	}
	sb.WriteString("<|im_start|>assistant\n")
	return sb.String()
}

// StopSequences implements Format.
func (ChatMLFormat) StopSequences() []string {
	return []string{"<|im_end|>", "<|im_start|>user"}
}

// Delimiters implements Format.
func (ChatMLFormat) Delimiters() []string {
	return []string{"<|im_start|>user", "<|im_start|>assistant", "<|im_start|>system", "<|im_start|>", "<|im_end|>"}
}
