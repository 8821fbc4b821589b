package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akarpov/ledgerbot/internal/domain"
)

func testDraft() domain.TransactionDraft {
	return domain.TransactionDraft{
		Amount:     decimal.RequireFromString("12.50"),
		Currency:   "USD",
		OccurredOn: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Payee:      "Subway",
		AccountID:  "7",
		Status:     domain.StatusAwaitingConfirmation,
	}
}

func TestInsertTransactionRequestShape(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transactions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Fatalf("request body is not JSON: %v", err)
		}
		w.Write([]byte(`{"ids": [123]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	id, err := c.InsertTransaction(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
	if id != 123 {
		t.Errorf("id = %d, want 123", id)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}

	if gotBody["apply_rules"] != false {
		t.Errorf("apply_rules = %v, want false", gotBody["apply_rules"])
	}
	txs, ok := gotBody["transactions"].([]interface{})
	if !ok || len(txs) != 1 {
		t.Fatalf("transactions = %v, want one element", gotBody["transactions"])
	}
	tx := txs[0].(map[string]interface{})

	want := map[string]interface{}{
		"date":     "2024-03-09",
		"amount":   "12.5",
		"currency": "usd",
		"payee":    "Subway",
		"asset_id": float64(7),
		"status":   "uncleared",
	}
	for k, v := range want {
		if tx[k] != v {
			t.Errorf("transaction[%q] = %v (%T), want %v", k, tx[k], tx[k], v)
		}
	}
	if len(tx) != len(want) {
		t.Errorf("transaction has %d fields %v, want exactly %d (no notes)", len(tx), tx, len(want))
	}
	if _, hasNotes := tx["notes"]; hasNotes {
		t.Error("transaction carries a notes field, which must never be sent")
	}
}

func TestInsertTransactionIncomeFlipsSign(t *testing.T) {
	var amount string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Transactions []struct {
				Amount string `json:"amount"`
			} `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Transactions) != 1 {
			t.Fatalf("bad request body: %v", err)
		}
		amount = body.Transactions[0].Amount
		w.Write([]byte(`{"ids": [1]}`))
	}))
	defer srv.Close()

	draft := testDraft()
	draft.IsIncome = true

	c := NewClient(srv.URL, "secret")
	if _, err := c.InsertTransaction(context.Background(), draft); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
	if amount != "-12.5" {
		t.Errorf("amount on the wire = %q, want -12.5 for income", amount)
	}
}

func TestInsertTransactionErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		draft   domain.TransactionDraft
		wantErr string
	}{
		{
			name:    "upstream failure surfaces",
			status:  http.StatusInternalServerError,
			body:    `{"error": "boom"}`,
			draft:   testDraft(),
			wantErr: "500",
		},
		{
			name:    "no id returned",
			status:  http.StatusOK,
			body:    `{"ids": []}`,
			draft:   testDraft(),
			wantErr: "no transaction id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "secret")
			_, err := c.InsertTransaction(context.Background(), tt.draft)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("InsertTransaction() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestInsertTransactionNonNumericAccount(t *testing.T) {
	c := NewClient("http://unreachable.invalid", "secret")
	draft := testDraft()
	draft.AccountID = "not-a-number"

	if _, err := c.InsertTransaction(context.Background(), draft); err == nil {
		t.Error("InsertTransaction() with non-numeric account id should fail before any request")
	}
}

func TestListManualAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/assets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"assets": [
			{"id": 7, "type_name": "cash", "name": "Wallet", "display_name": "Cash"},
			{"id": 42, "type_name": "credit", "name": "Visa Credit", "display_name": ""},
			{"id": 9, "type_name": "investment", "name": "Brokerage", "display_name": "Broker"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	accounts, err := c.ListManualAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListManualAccounts() error = %v", err)
	}

	want := []domain.Account{
		{ID: "7", Name: "Cash"},
		{ID: "42", Name: "Visa Credit"},
	}
	if len(accounts) != len(want) {
		t.Fatalf("got %d accounts %v, want %d", len(accounts), accounts, len(want))
	}
	for i := range want {
		if accounts[i] != want[i] {
			t.Errorf("account %d = %v, want %v", i, accounts[i], want[i])
		}
	}
}
