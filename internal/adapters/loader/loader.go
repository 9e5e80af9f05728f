// Package loader reads ingestion sources from disk.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/finsight/finrag-go/internal/chunker"
	"github.com/finsight/finrag-go/internal/domain/entities"
)

// Load reads a source by the named splitting strategy: "paragraph", "fixed",
// or "ledger". An empty name means paragraph.
func Load(path, kindName string) (chunker.Kind, chunker.Source, error) {
	switch kindName {
	case "", "paragraph":
		src, err := LoadText(path)
		return chunker.Paragraph, src, err
	case "fixed":
		src, err := LoadText(path)
		return chunker.FixedWidth, src, err
	case "ledger":
		src, err := LoadLedger(path)
		return chunker.StructuredLedger, src, err
	default:
		return 0, chunker.Source{}, fmt.Errorf("unknown chunking strategy %q", kindName)
	}
}

// LoadText reads a plain-text document into a chunker source. The splitting
// strategy is chosen by the caller, never inferred from the file name.
func LoadText(path string) (chunker.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chunker.Source{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return chunker.Source{Text: string(data)}, nil
}

// ledgerFile is the on-disk JSON shape of a structured ledger.
type ledgerFile struct {
	Profile  string `json:"profile"`
	Accounts []struct {
		Name    string `json:"name"`
		Entries []struct {
			Date        string  `json:"date"`
			Description string  `json:"description"`
			Amount      float64 `json:"amount"`
			Balance     float64 `json:"balance"`
		} `json:"entries"`
	} `json:"accounts"`
}

// LoadLedger parses a ledger JSON document into a chunker source. Entry
// dates may be RFC 3339 timestamps or plain YYYY-MM-DD days.
func LoadLedger(path string) (chunker.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chunker.Source{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return chunker.Source{}, fmt.Errorf("parsing ledger %s: %w", path, err)
	}

	ledger := &entities.Ledger{Profile: file.Profile}
	for _, acc := range file.Accounts {
		account := entities.Account{Name: acc.Name}
		for _, e := range acc.Entries {
			date, err := parseDate(e.Date)
			if err != nil {
				return chunker.Source{}, fmt.Errorf("ledger %s, account %s: %w", path, acc.Name, err)
			}
			account.Entries = append(account.Entries, entities.Entry{
				Date:        date,
				Description: e.Description,
				Amount:      e.Amount,
				Balance:     e.Balance,
			})
		}
		ledger.Accounts = append(ledger.Accounts, account)
	}
	return chunker.Source{Ledger: ledger}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
