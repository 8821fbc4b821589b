package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type fakeModel struct {
	reply string
	err   error
	calls int
}

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func newTestExtractor(t *testing.T, model ModelClient) *Extractor {
	t.Helper()
	e := New(model, time.UTC, "USD", zerolog.Nop())
	// Fixed clock: 2024-03-10 15:30 UTC.
	e.now = func() time.Time {
		return time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	}
	return e
}

func TestExtractHappyPath(t *testing.T) {
	model := &fakeModel{reply: `{"amount": 12.50, "currency": "usd", "date_expression": "yesterday", "payee": "Subway", "is_received": false}`}
	e := newTestExtractor(t, model)

	draft, err := e.Extract(context.Background(), "Lunch 12.50 yesterday cash at Subway")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !draft.Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("Amount = %s, want 12.50", draft.Amount)
	}
	if draft.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", draft.Currency)
	}
	wantDate := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	if !draft.OccurredOn.Equal(wantDate) {
		t.Errorf("OccurredOn = %v, want %v", draft.OccurredOn, wantDate)
	}
	if draft.Payee != "Subway" {
		t.Errorf("Payee = %q, want Subway", draft.Payee)
	}
	if draft.IsIncome {
		t.Error("IsIncome = true, want false")
	}
	if model.calls != 1 {
		t.Errorf("model called %d times, want exactly 1", model.calls)
	}
}

func TestExtractFencedResponse(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"amount\": 4, \"currency\": null, \"date_expression\": null, \"payee\": \"Coffee shop\", \"is_received\": false}\n```"}
	e := newTestExtractor(t, model)

	draft, err := e.Extract(context.Background(), "Coffee 4")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !draft.Amount.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Amount = %s, want 4", draft.Amount)
	}
	// No date token in the source text: defaults to today.
	wantDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if !draft.OccurredOn.Equal(wantDate) {
		t.Errorf("OccurredOn = %v, want %v", draft.OccurredOn, wantDate)
	}
	if draft.Currency != "USD" {
		t.Errorf("Currency = %q, want default USD", draft.Currency)
	}
}

func TestExtractFailureKinds(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  FailureKind
	}{
		{
			name:  "non-JSON response",
			reply: "I could not parse that, sorry!",
			want:  KindMalformedResponse,
		},
		{
			name:  "JSON array instead of object",
			reply: `["amount", 4]`,
			want:  KindMalformedResponse,
		},
		{
			name:  "missing amount",
			reply: `{"currency": "USD", "date_expression": null, "payee": "Subway", "is_received": false}`,
			want:  KindMissingAmount,
		},
		{
			name:  "null amount",
			reply: `{"amount": null, "payee": "Subway"}`,
			want:  KindMissingAmount,
		},
		{
			name:  "zero amount",
			reply: `{"amount": 0, "payee": "Subway"}`,
			want:  KindMissingAmount,
		},
		{
			name:  "unparseable string amount",
			reply: `{"amount": "a dozen", "payee": "Subway"}`,
			want:  KindMissingAmount,
		},
		{
			name:  "unresolvable date expression",
			reply: `{"amount": 4, "date_expression": "last tuesday-ish"}`,
			want:  KindAmbiguousDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(t, &fakeModel{reply: tt.reply})

			_, err := e.Extract(context.Background(), "whatever")
			var extErr *ExtractionError
			if !errors.As(err, &extErr) {
				t.Fatalf("Extract() error = %v, want *ExtractionError", err)
			}
			if extErr.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", extErr.Kind, tt.want)
			}
		})
	}
}

func TestExtractDateForms(t *testing.T) {
	tests := []struct {
		expr string
		want time.Time
	}{
		{"today", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			model := &fakeModel{reply: `{"amount": 1, "date_expression": "` + tt.expr + `"}`}
			e := newTestExtractor(t, model)

			draft, err := e.Extract(context.Background(), "x 1 "+tt.expr)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !draft.OccurredOn.Equal(tt.want) {
				t.Errorf("OccurredOn = %v, want %v", draft.OccurredOn, tt.want)
			}
		})
	}
}

func TestExtractIncomeFlag(t *testing.T) {
	model := &fakeModel{reply: `{"amount": 250, "payee": "Acme paycheck", "is_received": true}`}
	e := newTestExtractor(t, model)

	draft, err := e.Extract(context.Background(), "received 250 from Acme")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !draft.IsIncome {
		t.Error("IsIncome = false, want true")
	}
	// The magnitude stays positive regardless of direction.
	if !draft.Amount.IsPositive() {
		t.Errorf("Amount = %s, want positive", draft.Amount)
	}
}

func TestExtractModelError(t *testing.T) {
	wantErr := errors.New("upstream unavailable")
	e := newTestExtractor(t, &fakeModel{err: wantErr})

	_, err := e.Extract(context.Background(), "Coffee 4")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Extract() error = %v, want wrapped %v", err, wantErr)
	}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		t.Error("transport failure must not be classified as an extraction failure")
	}
}
