package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow-service/internal/config"
	"escrow-service/pkg/apperrors"
	"escrow-service/pkg/common"
)

type fakeTradeSafe struct {
	authCalls int32
	handle    func(w http.ResponseWriter, req graphQLRequest)
}

func (f *fakeTradeSafe) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.authCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		f.handle(w, req)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *TradeSafeClient {
	return NewTradeSafeClient(config.TradeSafeConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		APIURL:       srv.URL + "/graphql",
		AuthURL:      srv.URL + "/oauth/token",
	}, common.WithClient(srv.Client()))
}

func TestTradeSafeClientCachesAccessToken(t *testing.T) {
	fake := &fakeTradeSafe{handle: func(w http.ResponseWriter, req graphQLRequest) {
		assert.Equal(t, "txn-abc", req.Variables["id"])
		_, _ = w.Write([]byte(`{"data":{"transaction":{"id":"txn-abc","reference":"TNBJBTM2","state":"FUNDS_RECEIVED","allocations":[{"id":"alloc-1","state":"CREATED"}]}}}`))
	}}
	client := newTestClient(fake.server(t))

	for i := 0; i < 2; i++ {
		txn, err := client.GetTransaction(context.Background(), "txn-abc")
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, "FUNDS_RECEIVED", txn.State)
		assert.Equal(t, "alloc-1", txn.Allocations[0].ID)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&fake.authCalls))
}

func TestTradeSafeClientGraphQLErrors(t *testing.T) {
	fake := &fakeTradeSafe{handle: func(w http.ResponseWriter, req graphQLRequest) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Validation failed for the field [transactionCreate]."}]}`))
	}}
	client := newTestClient(fake.server(t))

	_, err := client.CreateTransaction(context.Background(), TradeSafeTransactionInput{Title: "x", Value: dec("10")})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUpstreamProvider, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "Validation failed")
}

func TestTradeSafeClientTransactionNotFound(t *testing.T) {
	fake := &fakeTradeSafe{handle: func(w http.ResponseWriter, req graphQLRequest) {
		_, _ = w.Write([]byte(`{"data":{"transaction":null},"errors":[{"message":"Transaction not found"}]}`))
	}}
	client := newTestClient(fake.server(t))

	txn, err := client.GetTransaction(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, txn)
}

func TestTradeSafeClientAuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestClient(srv).CheckoutLink(context.Background(), "txn-abc")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUpstreamProvider, apperrors.CodeOf(err))
}

func TestTradeSafeClientCreateToken(t *testing.T) {
	fake := &fakeTradeSafe{handle: func(w http.ResponseWriter, req graphQLRequest) {
		input := req.Variables["input"].(map[string]interface{})
		bank := input["bankAccount"].(map[string]interface{})
		assert.Equal(t, "CAPITEC", bank["bank"])
		_, _ = w.Write([]byte(`{"data":{"tokenCreate":{"id":"tok-worker"}}}`))
	}}
	client := newTestClient(fake.server(t))

	token, err := client.CreateToken(context.Background(), TradeSafeTokenInput{
		GivenName: "Thandi", FamilyName: "Mokoena", Email: "t@example.com",
		BankAccount: &TradeSafeBankAccount{AccountNumber: "1234567890", AccountType: "SAVINGS", Bank: "CAPITEC"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-worker", token)
}
