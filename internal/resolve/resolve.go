// Package resolve decides which ledger account a transaction belongs to
// from textual cues. It is deterministic and makes no network calls.
package resolve

import (
	"fmt"
	"strings"

	"github.com/akarpov/ledgerbot/internal/domain"
)

// FailureKind classifies why resolution failed.
type FailureKind string

const (
	// KindAmbiguousToken means the text matched more than one mapped token.
	KindAmbiguousToken FailureKind = "ambiguous_token"
	// KindNoAccountMatch means no rule produced an account.
	KindNoAccountMatch FailureKind = "no_account_match"
)

// ResolutionError is a terminal, per-message resolution failure. Hint is a
// user-facing remediation message.
type ResolutionError struct {
	Kind FailureKind
	Hint string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Hint)
}

// Resolve picks the account for rawText. Priority, first match wins:
//
//  1. case-insensitive substring match of an account display name;
//  2. a single token-map hit (two or more distinct hits fail loudly);
//  3. the configured default account id;
//  4. failure with a remediation hint.
func Resolve(rawText string, accounts []domain.Account, tokens domain.TokenMap, defaultAccountID string) (domain.Account, error) {
	lower := strings.ToLower(rawText)

	for _, acct := range accounts {
		name := strings.ToLower(strings.TrimSpace(acct.Name))
		if name != "" && strings.Contains(lower, name) {
			return acct, nil
		}
	}

	hits := tokens.Match(rawText)
	if len(hits) > 1 {
		matched := make([]string, len(hits))
		for i, h := range hits {
			matched[i] = h.Token
		}
		return domain.Account{}, &ResolutionError{
			Kind: KindAmbiguousToken,
			Hint: fmt.Sprintf("The message matches several account tokens (%s). Name the account explicitly.", strings.Join(matched, ", ")),
		}
	}
	if len(hits) == 1 {
		return accountByID(accounts, hits[0].AccountID), nil
	}

	if defaultAccountID != "" {
		return accountByID(accounts, defaultAccountID), nil
	}

	return domain.Account{}, &ResolutionError{
		Kind: KindNoAccountMatch,
		Hint: "Could not match an account. Include one of your account names in the message, or configure DEFAULT_ACCOUNT_ID or ACCOUNT_TOKENS.\nAvailable accounts: " + FormatAccountOptions(accounts),
	}
}

// accountByID returns the known account with the given id, or an account
// carrying only the id when the ledger listing does not include it.
func accountByID(accounts []domain.Account, id string) domain.Account {
	for _, acct := range accounts {
		if acct.ID == id {
			return acct
		}
	}
	return domain.Account{ID: id}
}

// FormatAccountOptions renders a short readable list of account choices
// for remediation messages.
func FormatAccountOptions(accounts []domain.Account) string {
	const limit = 10

	options := make([]string, 0, limit+1)
	for i, acct := range accounts {
		if i == limit {
			break
		}
		options = append(options, fmt.Sprintf("%s (id %s)", acct.Name, acct.ID))
	}
	if remaining := len(accounts) - limit; remaining > 0 {
		options = append(options, fmt.Sprintf("...and %d more", remaining))
	}
	return strings.Join(options, ", ")
}
