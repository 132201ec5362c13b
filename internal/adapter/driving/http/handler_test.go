package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfell/hornbill/internal/adapter/driven/importer"
	httphandler "github.com/mfell/hornbill/internal/adapter/driving/http"
	"github.com/mfell/hornbill/internal/application"
	"github.com/mfell/hornbill/internal/domain/model"
	"github.com/mfell/hornbill/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockTokenStore struct {
	rec *model.TokenRecord
}

func (m *mockTokenStore) GetToken(_ context.Context, _ string) (*model.TokenRecord, error) {
	return m.rec, nil
}

func (m *mockTokenStore) SaveToken(_ context.Context, _ string, rec model.TokenRecord) error {
	m.rec = &rec
	return nil
}

type mockBankClient struct {
	txns    []json.RawMessage
	txnsErr error
}

func (m *mockBankClient) ExchangeCode(_ context.Context, _ string) (driven.TokenGrant, error) {
	return driven.TokenGrant{}, nil
}

func (m *mockBankClient) Refresh(_ context.Context, _ string) (driven.TokenGrant, error) {
	return driven.TokenGrant{}, nil
}

func (m *mockBankClient) ListAccounts(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"results":[{"account_id":"tl-acc-1"}]}`), nil
}

func (m *mockBankClient) ListCards(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"results":[]}`), nil
}

func (m *mockBankClient) ListAccountTransactions(_ context.Context, _, _, _, _ string) ([]json.RawMessage, error) {
	return m.txns, m.txnsErr
}

func (m *mockBankClient) ListCardTransactions(_ context.Context, _, _, _, _ string) ([]json.RawMessage, error) {
	return m.txns, m.txnsErr
}

type mockAccountStore struct {
	accounts []model.Account
	addErr   error
	added    model.Account
}

func (m *mockAccountStore) find(name, institution string) *model.Account {
	for i := range m.accounts {
		if m.accounts[i].Name == name && m.accounts[i].Institution == institution {
			return &m.accounts[i]
		}
	}
	return nil
}

func (m *mockAccountStore) Add(_ context.Context, account model.Account) error {
	m.added = account
	return m.addErr
}

func (m *mockAccountStore) GetExternalID(_ context.Context, name, institution string) (string, error) {
	account := m.find(name, institution)
	if account == nil {
		return "", driven.ErrAccountNotFound
	}
	return account.ExternalAccountID, nil
}

func (m *mockAccountStore) IsLiability(_ context.Context, name, institution string) (bool, error) {
	account := m.find(name, institution)
	if account == nil {
		return false, driven.ErrAccountNotFound
	}
	return account.Kind == model.KindLiability, nil
}

func (m *mockAccountStore) GetDownstreamID(_ context.Context, name, institution string) (string, error) {
	account := m.find(name, institution)
	if account == nil {
		return "", nil
	}
	return account.DownstreamAccountID, nil
}

func (m *mockAccountStore) ListActive(_ context.Context) ([]model.AccountRef, error) {
	var refs []model.AccountRef
	for _, account := range m.accounts {
		if account.DownstreamAccountID != "" {
			refs = append(refs, model.AccountRef{Name: account.Name, Institution: account.Institution})
		}
	}
	return refs, nil
}

func (m *mockAccountStore) ListAll(_ context.Context) ([]model.Account, error) {
	return m.accounts, nil
}

type mockImportClient struct {
	resp json.RawMessage
	err  error
}

func (m *mockImportClient) Import(_ context.Context, _ string, _ []json.RawMessage) (json.RawMessage, error) {
	return m.resp, m.err
}

// --- Test helpers ---

func validToken() *model.TokenRecord {
	return &model.TokenRecord{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Scope:        "info",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
}

func newTestServer(accounts *mockAccountStore, bank *mockBankClient, imports *mockImportClient) http.Handler {
	tokenSvc := application.NewTokenService(&mockTokenStore{rec: validToken()}, bank, "")
	importSvc := application.NewImportService(tokenSvc, accounts, bank, imports, "2025-11-01")
	handler := httphandler.NewHandler(importSvc, accounts, slog.Default())
	return httphandler.NewServeMux(handler, slog.Default())
}

func linkedAccount() model.Account {
	return model.Account{
		Name:                "checking1",
		Kind:                model.KindAsset,
		Institution:         "barclays",
		ExternalAccountID:   "tl-acc-1",
		DownstreamAccountID: "ds-1",
	}
}

// --- Tests ---

func TestHealth(t *testing.T) {
	mux := newTestServer(&mockAccountStore{}, &mockBankClient{}, &mockImportClient{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestImportAccount_Success(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.Account{linkedAccount()}}
	imports := &mockImportClient{resp: json.RawMessage(`{"imported":3}`)}
	mux := newTestServer(accounts, &mockBankClient{}, imports)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/import/barclays/checking1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"imported":3}`, rec.Body.String())
}

func TestImportAccount_UnknownAccount(t *testing.T) {
	mux := newTestServer(&mockAccountStore{}, &mockBankClient{}, &mockImportClient{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/import/barclays/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// A downstream rejection passes its status and body through verbatim.
func TestImportAccount_DownstreamRejectionPassedThrough(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.Account{linkedAccount()}}
	imports := &mockImportClient{err: &importer.StatusError{
		Status: http.StatusUnprocessableEntity,
		Body:   `{"error":"unknown account"}`,
	}}
	mux := newTestServer(accounts, &mockBankClient{}, imports)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/import/barclays/checking1", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"unknown account"}`, rec.Body.String())
}

func TestImportAccount_DownstreamUnreachable(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.Account{linkedAccount()}}
	imports := &mockImportClient{err: &importer.UnreachableError{Err: errors.New("connection refused")}}
	mux := newTestServer(accounts, &mockBankClient{}, imports)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/import/barclays/checking1", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestImportAll(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.Account{linkedAccount()}}
	imports := &mockImportClient{resp: json.RawMessage(`{}`)}
	mux := newTestServer(accounts, &mockBankClient{}, imports)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/import", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.ImportCycleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accounts)
	assert.Equal(t, 0, resp.Errors)
}

func TestListUpstreamAccounts(t *testing.T) {
	mux := newTestServer(&mockAccountStore{}, &mockBankClient{}, &mockImportClient{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/institutions/barclays/accounts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[{"account_id":"tl-acc-1"}]}`, rec.Body.String())
}

func TestListAccounts(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.Account{linkedAccount()}}
	mux := newTestServer(accounts, &mockBankClient{}, &mockImportClient{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []httphandler.AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "checking1", resp[0].Name)
	assert.Equal(t, "asset", resp[0].Kind)
	assert.Equal(t, "ds-1", resp[0].DownstreamAccountID)
}

func TestAddAccount(t *testing.T) {
	accounts := &mockAccountStore{}
	mux := newTestServer(accounts, &mockBankClient{}, &mockImportClient{})

	body := `{"name":"creditcard1","kind":"liability","institution":"barclays","external_account_id":"tl-card-1"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "creditcard1", accounts.added.Name)
	assert.Equal(t, model.KindLiability, accounts.added.Kind)
}

func TestAddAccount_Duplicate(t *testing.T) {
	accounts := &mockAccountStore{addErr: driven.ErrAccountAlreadyExists}
	mux := newTestServer(accounts, &mockBankClient{}, &mockImportClient{})

	body := `{"name":"checking1","kind":"asset","institution":"barclays"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddAccount_InvalidKind(t *testing.T) {
	mux := newTestServer(&mockAccountStore{}, &mockBankClient{}, &mockImportClient{})

	body := `{"name":"checking1","kind":"debit","institution":"barclays"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddAccount_MissingFields(t *testing.T) {
	mux := newTestServer(&mockAccountStore{}, &mockBankClient{}, &mockImportClient{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(`{"kind":"asset"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
