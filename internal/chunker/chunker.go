// Package chunker splits ingestion sources into semantic units suitable for
// independent embedding and retrieval.
package chunker

import (
	"fmt"

	"github.com/finsight/finrag-go/internal/domain/entities"
)

// Kind selects a splitting strategy. The caller picks it explicitly from the
// declared input kind; nothing is inferred from file names.
type Kind int

const (
	// Paragraph splits free text on blank-line boundaries.
	Paragraph Kind = iota
	// FixedWidth splits free text into consecutive character windows.
	FixedWidth
	// StructuredLedger splits a ledger into profile and monthly units.
	StructuredLedger
)

// Source is the raw input to split: free text, or a structured ledger for
// the StructuredLedger kind.
type Source struct {
	Text   string
	Ledger *entities.Ledger
}

// Splitter produces an ordered sequence of unit texts from a source. Every
// returned unit is non-empty after trimming; an empty source yields zero
// units and the caller decides whether that is an error.
type Splitter interface {
	Split(src Source) ([]string, error)
}

// Config carries per-strategy settings.
type Config struct {
	// Width is the window size in runes for the FixedWidth splitter.
	Width int
}

// New returns the splitter for the given kind.
func New(kind Kind, cfg Config) (Splitter, error) {
	switch kind {
	case Paragraph:
		return &ParagraphSplitter{}, nil
	case FixedWidth:
		return NewFixedWidthSplitter(cfg.Width), nil
	case StructuredLedger:
		return &LedgerSplitter{}, nil
	default:
		return nil, fmt.Errorf("unknown chunker kind %d", kind)
	}
}
