package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks a transaction draft through the confirmation lifecycle.
type Status string

const (
	// StatusDraft is a freshly extracted draft before resolution.
	StatusDraft Status = "draft"
	// StatusAwaitingConfirmation means a confirmation prompt is pending.
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	// StatusConfirmed means the draft was inserted into the ledger.
	StatusConfirmed Status = "confirmed"
	// StatusCancelled means the user rejected the draft or it was superseded.
	StatusCancelled Status = "cancelled"
	// StatusExpired means the confirmation prompt outlived its TTL.
	StatusExpired Status = "expired"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusExpired
}

// TransactionDraft is one extracted-but-unconfirmed transaction.
// Amount is always a positive magnitude; IsIncome flips the sign of the
// amount sent to the ledger, never the magnitude held here.
type TransactionDraft struct {
	Amount      decimal.Decimal // > 0
	Currency    string          // 3-letter upper-case code
	OccurredOn  time.Time       // calendar date, midnight in the conversation TZ
	Payee       string          // may be empty
	AccountID   string          // empty until resolution succeeds
	AccountName string          // ledger display name for summaries
	IsIncome    bool
	RawText     string // original message text
	Status      Status
}

// Account is one manually tracked ledger account.
type Account struct {
	ID   string
	Name string
}
