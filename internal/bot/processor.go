// Package bot orchestrates the message-to-ledger-entry pipeline: extract a
// draft from free text, resolve its account, hold it in a confirmation
// session and insert it into the ledger once the user confirms. The
// Processor is transport-agnostic; the Telegram adapter lives alongside it.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/akarpov/ledgerbot/internal/domain"
	"github.com/akarpov/ledgerbot/internal/extract"
	"github.com/akarpov/ledgerbot/internal/resolve"
	"github.com/akarpov/ledgerbot/internal/session"
)

// Callback actions carried in button data, "<action>:<token>".
const (
	ActionConfirm = "confirm"
	ActionCancel  = "cancel"
)

// Extractor turns raw text into a transaction draft.
type Extractor interface {
	Extract(ctx context.Context, rawText string) (domain.TransactionDraft, error)
}

// Ledger is the outbound contract toward the bookkeeping service.
type Ledger interface {
	ListManualAccounts(ctx context.Context) ([]domain.Account, error)
	InsertTransaction(ctx context.Context, draft domain.TransactionDraft) (int64, error)
}

// Reply is what the transport should deliver back to the conversation.
type Reply struct {
	Text         string
	ConfirmToken string // non-empty: attach confirm/cancel buttons for this token
	Alert        bool   // callback answers only: show prominently
}

// Processor handles inbound conversation events.
type Processor struct {
	extractor        Extractor
	ledger           Ledger
	sessions         *session.Store
	tokens           domain.TokenMap
	defaultAccountID string
	log              zerolog.Logger
}

// NewProcessor wires the pipeline components together.
func NewProcessor(extractor Extractor, ledger Ledger, sessions *session.Store, tokens domain.TokenMap, defaultAccountID string, log zerolog.Logger) *Processor {
	return &Processor{
		extractor:        extractor,
		ledger:           ledger,
		sessions:         sessions,
		tokens:           tokens,
		defaultAccountID: defaultAccountID,
		log:              log,
	}
}

// HandleMessage processes one free-text message. Every failure is scoped
// to this event: the user gets an explanation and no session is created.
func (p *Processor) HandleMessage(ctx context.Context, conversationID int64, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}
	}

	accounts, err := p.ledger.ListManualAccounts(ctx)
	if err != nil {
		p.log.Error().Err(err).Int64("chat_id", conversationID).Msg("listing ledger accounts failed")
		return Reply{Text: "Could not reach the ledger service. Try again in a moment."}
	}
	if len(accounts) == 0 {
		return Reply{Text: "No manual accounts found in the ledger. Add a cash or credit account before using this bot."}
	}

	draft, err := p.extractor.Extract(ctx, text)
	if err != nil {
		p.log.Warn().Err(err).Int64("chat_id", conversationID).Msg("extraction failed")
		return Reply{Text: extractionFailureText(err)}
	}

	account, err := resolve.Resolve(text, accounts, p.tokens, p.defaultAccountID)
	if err != nil {
		var resErr *resolve.ResolutionError
		if errors.As(err, &resErr) {
			return Reply{Text: resErr.Hint}
		}
		return Reply{Text: fmt.Sprintf("Could not resolve an account: %v", err)}
	}
	draft.AccountID = account.ID
	draft.AccountName = account.Name

	sess, superseded := p.sessions.Put(conversationID, draft)
	if superseded {
		p.log.Info().Int64("chat_id", conversationID).Msg("superseded a pending draft")
	}

	p.log.Info().
		Int64("chat_id", conversationID).
		Str("session_token", sess.Token).
		Str("account_id", draft.AccountID).
		Msg("draft awaiting confirmation")

	return Reply{Text: buildSummary(sess.Draft), ConfirmToken: sess.Token}
}

// HandleCallback processes a confirm/cancel button press. data is the raw
// callback payload, "<action>:<token>".
func (p *Processor) HandleCallback(ctx context.Context, conversationID int64, data string) Reply {
	action, token, ok := strings.Cut(data, ":")
	if !ok || token == "" {
		return Reply{Text: "Unknown action.", Alert: true}
	}

	switch action {
	case ActionConfirm:
		return p.confirm(ctx, conversationID, token)
	case ActionCancel:
		return p.cancel(conversationID, token)
	default:
		return Reply{Text: "Unknown action.", Alert: true}
	}
}

func (p *Processor) confirm(ctx context.Context, conversationID int64, token string) Reply {
	var txID int64
	insert := func(ctx context.Context, draft domain.TransactionDraft) error {
		id, err := p.ledger.InsertTransaction(ctx, draft)
		if err != nil {
			return err
		}
		txID = id
		return nil
	}

	_, err := p.sessions.Confirm(ctx, conversationID, token, insert)
	switch {
	case errors.Is(err, session.ErrNoPending):
		return Reply{Text: "No pending transaction."}
	case errors.Is(err, session.ErrExpired):
		return Reply{Text: "This confirmation expired. Send the transaction again.", Alert: true}
	case err != nil:
		p.log.Error().Err(err).Int64("chat_id", conversationID).Msg("ledger insert failed")
		return Reply{Text: "Failed to save the transaction. Press Confirm to retry.", Alert: true}
	}

	p.log.Info().Int64("chat_id", conversationID).Int64("transaction_id", txID).Msg("transaction saved")
	return Reply{Text: fmt.Sprintf("Saved transaction in the ledger (id %d).", txID)}
}

func (p *Processor) cancel(conversationID int64, token string) Reply {
	_, err := p.sessions.Cancel(conversationID, token)
	switch {
	case errors.Is(err, session.ErrNoPending):
		return Reply{Text: "No pending transaction."}
	case errors.Is(err, session.ErrExpired):
		return Reply{Text: "This confirmation expired. Send the transaction again.", Alert: true}
	case err != nil:
		return Reply{Text: fmt.Sprintf("Cancel failed: %v", err)}
	}
	return Reply{Text: "Cancelled. Send a new transaction when ready."}
}

// HandleStart answers /start and /help.
func (p *Processor) HandleStart() Reply {
	return Reply{Text: "Send a transaction like: 'Lunch 12.50 yesterday cash at Subway'. " +
		"I will parse it and ask you to confirm before saving. " +
		"Use /accounts to see account names and IDs."}
}

// HandleAccounts answers /accounts with the manual account listing.
func (p *Processor) HandleAccounts(ctx context.Context) Reply {
	accounts, err := p.ledger.ListManualAccounts(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("listing ledger accounts failed")
		return Reply{Text: "Could not reach the ledger service. Try again in a moment."}
	}
	if len(accounts) == 0 {
		return Reply{Text: "No manual accounts found in the ledger. Add a cash or credit account before using this bot."}
	}

	var b strings.Builder
	b.WriteString("Manual accounts:")
	for _, acct := range accounts {
		fmt.Fprintf(&b, "\n- %s (id %s)", acct.Name, acct.ID)
	}
	return Reply{Text: b.String()}
}

func extractionFailureText(err error) string {
	var extErr *extract.ExtractionError
	if !errors.As(err, &extErr) {
		return "Failed to parse the transaction. Try again in a moment."
	}

	switch extErr.Kind {
	case extract.KindMissingAmount:
		return "Missing amount. Please include how much was spent."
	case extract.KindAmbiguousDate:
		return "Could not understand the date. Use 'today', 'yesterday' or a YYYY-MM-DD date."
	default:
		return "Could not understand that message as a transaction. Try rephrasing it."
	}
}
