package bot

import (
	"fmt"
	"strings"

	"github.com/akarpov/ledgerbot/internal/domain"
)

// buildSummary renders the human-readable confirmation prompt for a draft.
func buildSummary(draft domain.TransactionDraft) string {
	direction := "Expense"
	if draft.IsIncome {
		direction = "Income"
	}

	account := draft.AccountName
	if account == "" {
		account = "id " + draft.AccountID
	}

	lines := []string{
		"Proposed transaction:",
		fmt.Sprintf("Date: %s", draft.OccurredOn.Format("2006-01-02")),
		fmt.Sprintf("Payee: %s", draft.Payee),
		fmt.Sprintf("Amount: %s %s", draft.Amount.StringFixed(2), draft.Currency),
		fmt.Sprintf("Type: %s", direction),
		fmt.Sprintf("Account: %s", account),
		"",
		fmt.Sprintf("Original text: %s", draft.RawText),
	}
	return strings.Join(lines, "\n")
}
