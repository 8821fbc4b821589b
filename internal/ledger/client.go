// Package ledger is an HTTP client for the Lunch Money bookkeeping API:
// inserting confirmed transactions and listing the manually tracked
// accounts the bot may post to.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akarpov/ledgerbot/internal/domain"
)

// DefaultBaseURL is the production Lunch Money API endpoint.
const DefaultBaseURL = "https://dev.lunchmoney.app"

// manualAccountTypes are the asset types the bot can post manual
// transactions to.
var manualAccountTypes = map[string]bool{
	"cash":   true,
	"credit": true,
}

// Client provides access to the ledger API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a ledger API client with a static access token.
func NewClient(baseURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type insertTransaction struct {
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Payee    string          `json:"payee"`
	AssetID  int64           `json:"asset_id"`
	Status   string          `json:"status"`
}

type insertRequest struct {
	Transactions []insertTransaction `json:"transactions"`
	ApplyRules   bool                `json:"apply_rules"`
}

// InsertTransaction inserts one confirmed draft and returns the new
// transaction id. The entry is always created uncleared with rule
// application disabled, and no notes are sent. Exactly one attempt is
// made; upstream failures surface to the caller.
func (c *Client) InsertTransaction(ctx context.Context, draft domain.TransactionDraft) (int64, error) {
	assetID, err := strconv.ParseInt(draft.AccountID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("account id %q is not a ledger asset id: %w", draft.AccountID, err)
	}

	// The ledger treats positive amounts as debits; income entries flip
	// the sign of the positive draft magnitude.
	amount := draft.Amount
	if draft.IsIncome {
		amount = amount.Neg()
	}

	body := insertRequest{
		Transactions: []insertTransaction{{
			Date:     draft.OccurredOn.Format("2006-01-02"),
			Amount:   amount,
			Currency: strings.ToLower(draft.Currency),
			Payee:    draft.Payee,
			AssetID:  assetID,
			Status:   "uncleared",
		}},
		ApplyRules: false,
	}

	var result struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.post(ctx, "/v1/transactions", body, &result); err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	if len(result.IDs) == 0 {
		return 0, fmt.Errorf("insert transaction: ledger returned no transaction id")
	}
	return result.IDs[0], nil
}

type asset struct {
	ID          int64  `json:"id"`
	TypeName    string `json:"type_name"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ListManualAccounts fetches the manually tracked (cash/credit) accounts.
func (c *Client) ListManualAccounts(ctx context.Context) ([]domain.Account, error) {
	var result struct {
		Assets []asset `json:"assets"`
	}
	if err := c.get(ctx, "/v1/assets", &result); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var accounts []domain.Account
	for _, a := range result.Assets {
		if !manualAccountTypes[a.TypeName] {
			continue
		}
		label := a.DisplayName
		if label == "" {
			label = a.Name
		}
		accounts = append(accounts, domain.Account{
			ID:   strconv.FormatInt(a.ID, 10),
			Name: label,
		})
	}
	return accounts, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
