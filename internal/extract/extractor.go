// Package extract turns free-text purchase messages into typed transaction
// drafts by way of a language-understanding model call followed by strict
// schema validation.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akarpov/ledgerbot/internal/domain"
)

// ModelClient sends one prompt to a language model and returns the raw
// text of its reply. Implementations make exactly one call per invocation.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Extractor validates model output against the draft schema and resolves
// relative date expressions in the conversation's timezone.
type Extractor struct {
	model           ModelClient
	loc             *time.Location
	defaultCurrency string
	log             zerolog.Logger
	now             func() time.Time
}

// New creates an Extractor. loc is the conversation timezone used to
// resolve "today"/"yesterday".
func New(model ModelClient, loc *time.Location, defaultCurrency string, log zerolog.Logger) *Extractor {
	return &Extractor{
		model:           model,
		loc:             loc,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		log:             log,
		now:             time.Now,
	}
}

// Extract performs one model call for rawText and returns a validated
// draft. Model transport errors surface as-is; schema problems surface as
// *ExtractionError. Nothing is retried.
func (e *Extractor) Extract(ctx context.Context, rawText string) (domain.TransactionDraft, error) {
	today := e.now().In(e.loc).Format("2006-01-02")
	prompt := buildPrompt(rawText, today, e.loc.String(), e.defaultCurrency)

	raw, err := e.model.Generate(ctx, prompt)
	if err != nil {
		return domain.TransactionDraft{}, fmt.Errorf("model call: %w", err)
	}

	obj, err := decodeResponse(raw)
	if err != nil {
		e.log.Warn().Err(err).Str("raw", raw).Msg("model returned malformed output")
		return domain.TransactionDraft{}, err
	}

	amount, err := amountField(obj)
	if err != nil {
		return domain.TransactionDraft{}, err
	}

	occurredOn, err := e.resolveDate(optionalString(obj, "date_expression"))
	if err != nil {
		return domain.TransactionDraft{}, err
	}

	currency := strings.ToUpper(optionalString(obj, "currency"))
	if len(currency) != 3 {
		currency = e.defaultCurrency
	}

	isIncome, _ := obj["is_received"].(bool)

	// Any other keys in the response (notes, categories, confidence) are
	// intentionally discarded.
	return domain.TransactionDraft{
		Amount:     amount,
		Currency:   currency,
		OccurredOn: occurredOn,
		Payee:      optionalString(obj, "payee"),
		IsIncome:   isIncome,
		RawText:    rawText,
		Status:     domain.StatusDraft,
	}, nil
}

// decodeResponse parses the model reply into a JSON object, stripping
// Markdown fences first.
func decodeResponse(raw string) (map[string]interface{}, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, &ExtractionError{Kind: KindMalformedResponse, Detail: "empty response"}
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, &ExtractionError{Kind: KindMalformedResponse, Detail: err.Error()}
	}

	obj, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, &ExtractionError{Kind: KindMalformedResponse, Detail: fmt.Sprintf("got %T, want object", parsed)}
	}
	return obj, nil
}

// amountField extracts a strictly positive amount. The model sometimes
// answers with a numeric string; both forms are accepted.
func amountField(obj map[string]interface{}) (decimal.Decimal, error) {
	v, ok := obj["amount"]
	if !ok || v == nil {
		return decimal.Decimal{}, &ExtractionError{Kind: KindMissingAmount, Detail: "no amount field"}
	}

	var amount decimal.Decimal
	switch val := v.(type) {
	case float64:
		amount = decimal.NewFromFloat(val)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Decimal{}, &ExtractionError{Kind: KindMissingAmount, Detail: fmt.Sprintf("unparseable amount %q", val)}
		}
		amount = parsed
	default:
		return decimal.Decimal{}, &ExtractionError{Kind: KindMissingAmount, Detail: fmt.Sprintf("amount has type %T", v)}
	}

	// Income is flagged separately; the magnitude itself must be positive.
	amount = amount.Abs()
	if !amount.IsPositive() {
		return decimal.Decimal{}, &ExtractionError{Kind: KindMissingAmount, Detail: "amount is zero"}
	}
	return amount, nil
}

// resolveDate turns a date expression into a concrete calendar date at
// midnight in the conversation timezone. An absent expression defaults to
// today; a present but unresolvable one is an error, not a silent default.
func (e *Extractor) resolveDate(expr string) (time.Time, error) {
	today := midnight(e.now().In(e.loc))

	switch strings.ToLower(strings.TrimSpace(expr)) {
	case "", "null":
		return today, nil
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(expr), e.loc)
	if err != nil {
		return time.Time{}, &ExtractionError{Kind: KindAmbiguousDate, Detail: fmt.Sprintf("unresolvable date expression %q", expr)}
	}
	return parsed, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func optionalString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
