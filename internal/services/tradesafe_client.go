package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"escrow-service/internal/config"
	"escrow-service/pkg/apperrors"
	"escrow-service/pkg/common"
)

// TradeSafeAPI is the subset of the TradeSafe GraphQL API the escrow flow needs.
type TradeSafeAPI interface {
	CreateToken(ctx context.Context, in TradeSafeTokenInput) (string, error)
	CreateTransaction(ctx context.Context, in TradeSafeTransactionInput) (*TradeSafeTransaction, error)
	CheckoutLink(ctx context.Context, transactionID string) (string, error)
	// GetTransaction returns nil when the provider does not know the id.
	GetTransaction(ctx context.Context, transactionID string) (*TradeSafeTransaction, error)
}

type TradeSafeBankAccount struct {
	AccountNumber string
	AccountType   string
	Bank          string
}

type TradeSafeTokenInput struct {
	GivenName   string
	FamilyName  string
	Email       string
	BankAccount *TradeSafeBankAccount
}

type TradeSafeTransactionInput struct {
	Title         string
	Description   string
	Value         decimal.Decimal
	BuyerToken    string
	SellerToken   string
	AgentToken    string
	AgentFeePct   decimal.Decimal
	DaysToDeliver int
	DaysToInspect int
}

type TradeSafeAllocation struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type TradeSafeTransaction struct {
	ID          string                `json:"id"`
	Reference   string                `json:"reference"`
	State       string                `json:"state"`
	Allocations []TradeSafeAllocation `json:"allocations"`
}

// TradeSafeClient talks GraphQL with an OAuth client-credentials token.
type TradeSafeClient struct {
	cfg  config.TradeSafeConfig
	http *common.HTTPClient

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	now      func() time.Time
}

func NewTradeSafeClient(cfg config.TradeSafeConfig, httpClient *common.HTTPClient) *TradeSafeClient {
	return &TradeSafeClient{cfg: cfg, http: httpClient, now: time.Now}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *TradeSafeClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExp) {
		return c.token, nil
	}

	body, err := c.http.PostForm(ctx, c.cfg.AuthURL, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}, nil)
	if err != nil {
		return "", apperrors.Upstream(err, "TradeSafe authentication failed")
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", apperrors.Upstream(err, "TradeSafe returned no access token")
	}
	c.token = tok.AccessToken
	// refresh a minute early
	c.tokenExp = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *TradeSafeClient) query(ctx context.Context, q string, vars map[string]interface{}, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	var resp graphQLResponse
	err = c.http.PostJSON(ctx, c.cfg.APIURL, graphQLRequest{Query: q, Variables: vars},
		map[string]string{"Authorization": "Bearer " + token}, &resp)
	if err != nil {
		return apperrors.Upstream(err, "TradeSafe request failed")
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return apperrors.Upstream(nil, "TradeSafe error: %s", strings.Join(msgs, "; "))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return apperrors.Upstream(err, "unexpected TradeSafe response")
	}
	return nil
}

const tokenCreateMutation = `mutation tokenCreate($input: TokenInput!) {
  tokenCreate(input: $input) { id }
}`

func (c *TradeSafeClient) CreateToken(ctx context.Context, in TradeSafeTokenInput) (string, error) {
	input := map[string]interface{}{
		"user": map[string]interface{}{
			"givenName":  in.GivenName,
			"familyName": in.FamilyName,
			"email":      in.Email,
		},
	}
	if in.BankAccount != nil {
		input["bankAccount"] = map[string]interface{}{
			"accountNumber": in.BankAccount.AccountNumber,
			"accountType":   in.BankAccount.AccountType,
			"bank":          in.BankAccount.Bank,
		}
		input["settings"] = map[string]interface{}{
			"payout": map[string]interface{}{"interval": "IMMEDIATE", "refund": "WALLET"},
		}
	}
	var out struct {
		TokenCreate struct {
			ID string `json:"id"`
		} `json:"tokenCreate"`
	}
	if err := c.query(ctx, tokenCreateMutation, map[string]interface{}{"input": input}, &out); err != nil {
		return "", err
	}
	if out.TokenCreate.ID == "" {
		return "", apperrors.Upstream(nil, "TradeSafe returned an empty token")
	}
	return out.TokenCreate.ID, nil
}

const transactionCreateMutation = `mutation transactionCreate($input: CreateTransactionInput!) {
  transactionCreate(input: $input) { id reference state allocations { id state } }
}`

func (c *TradeSafeClient) CreateTransaction(ctx context.Context, in TradeSafeTransactionInput) (*TradeSafeTransaction, error) {
	value, _ := in.Value.Round(2).Float64()
	fee, _ := in.AgentFeePct.Float64()
	input := map[string]interface{}{
		"title":         in.Title,
		"description":   in.Description,
		"industry":      "GENERAL_GOODS_SERVICES",
		"currency":      "ZAR",
		"feeAllocation": "SELLER",
		"workflow":      "STANDARD",
		"allocations": map[string]interface{}{
			"create": []map[string]interface{}{{
				"title":         in.Title,
				"description":   in.Description,
				"value":         value,
				"daysToDeliver": in.DaysToDeliver,
				"daysToInspect": in.DaysToInspect,
			}},
		},
		"parties": map[string]interface{}{
			"create": []map[string]interface{}{
				{"token": in.BuyerToken, "role": "BUYER"},
				{"token": in.SellerToken, "role": "SELLER"},
				{"token": in.AgentToken, "role": "AGENT", "fee": fee, "feeType": "PERCENT", "feeAllocation": "SELLER"},
			},
		},
	}
	var out struct {
		TransactionCreate *TradeSafeTransaction `json:"transactionCreate"`
	}
	if err := c.query(ctx, transactionCreateMutation, map[string]interface{}{"input": input}, &out); err != nil {
		return nil, err
	}
	if out.TransactionCreate == nil || out.TransactionCreate.ID == "" {
		return nil, apperrors.Upstream(nil, "TradeSafe did not return a transaction")
	}
	return out.TransactionCreate, nil
}

const checkoutLinkMutation = `mutation checkoutLink($transactionId: ID!) {
  checkoutLink(transactionId: $transactionId)
}`

func (c *TradeSafeClient) CheckoutLink(ctx context.Context, transactionID string) (string, error) {
	var out struct {
		CheckoutLink string `json:"checkoutLink"`
	}
	if err := c.query(ctx, checkoutLinkMutation, map[string]interface{}{"transactionId": transactionID}, &out); err != nil {
		return "", err
	}
	if out.CheckoutLink == "" {
		return "", apperrors.Upstream(nil, "TradeSafe returned no checkout link")
	}
	return out.CheckoutLink, nil
}

const transactionQuery = `query transaction($id: ID!) {
  transaction(id: $id) { id reference state allocations { id state } }
}`

func (c *TradeSafeClient) GetTransaction(ctx context.Context, transactionID string) (*TradeSafeTransaction, error) {
	var out struct {
		Transaction *TradeSafeTransaction `json:"transaction"`
	}
	if err := c.query(ctx, transactionQuery, map[string]interface{}{"id": transactionID}, &out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	return out.Transaction, nil
}

func (t TradeSafeTransaction) String() string {
	return fmt.Sprintf("%s(%s)", t.ID, t.State)
}
