package chunker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finsight/finrag-go/internal/domain/entities"
)

// LedgerSplitter splits a structured ledger into one unit for the profile
// summary and one unit per (account, calendar month) group. Each entry is
// rendered as a single line so that amounts, balances, and dates survive
// embedding as plain text.
type LedgerSplitter struct{}

// Split implements Splitter.
func (s *LedgerSplitter) Split(src Source) ([]string, error) {
	if src.Ledger == nil {
		return nil, errors.New("ledger splitter requires a ledger source")
	}

	var units []string

	if profile := strings.TrimSpace(src.Ledger.Profile); profile != "" {
		units = append(units, "Account holder profile:\n"+profile)
	}

	for _, account := range src.Ledger.Accounts {
		units = append(units, splitAccount(account)...)
	}
	return units, nil
}

// monthKey identifies one calendar month.
type monthKey struct {
	year  int
	month time.Month
}

func splitAccount(account entities.Account) []string {
	groups := make(map[monthKey][]string)
	var order []monthKey

	for _, entry := range account.Entries {
		anchored := anchorDay(entry.Date)
		key := monthKey{year: anchored.Year(), month: anchored.Month()}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], renderEntry(anchored, entry))
	}

	units := make([]string, 0, len(order))
	for _, key := range order {
		header := fmt.Sprintf("Transaction history for account %s, %s %d:",
			account.Name, key.month, key.year)
		units = append(units, header+"\n"+strings.Join(groups[key], "\n"))
	}
	return units
}

func renderEntry(anchored time.Time, entry entities.Entry) string {
	return fmt.Sprintf("On %s: %s, Amount: $%.2f, Balance: $%.2f",
		anchored.Format("January 2, 2006"), entry.Description, entry.Amount, entry.Balance)
}

// anchorDay pins an entry date to noon UTC before the calendar day and month
// are read, so a timezone offset cannot shift an entry into the neighboring
// month.
func anchorDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}
