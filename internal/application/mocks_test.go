package application_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mfell/hornbill/internal/domain/model"
	"github.com/mfell/hornbill/internal/domain/port/driven"
)

// --- Mock implementations shared by the application tests ---

// mockTokenStore is an in-memory TokenStore safe for concurrent use.
type mockTokenStore struct {
	mu     sync.Mutex
	tokens map[string]model.TokenRecord
	getErr error
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]model.TokenRecord)}
}

func (m *mockTokenStore) GetToken(_ context.Context, institution string) (*model.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.tokens[institution]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *mockTokenStore) SaveToken(_ context.Context, institution string, rec model.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[institution] = rec
	return nil
}

func (m *mockTokenStore) stored(institution string) (model.TokenRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tokens[institution]
	return rec, ok
}

// mockBankClient lets each test plug in behavior per method; unset methods
// return zero values.
type mockBankClient struct {
	exchangeCode func(ctx context.Context, code string) (driven.TokenGrant, error)
	refresh      func(ctx context.Context, refreshToken string) (driven.TokenGrant, error)
	accountTxns  func(ctx context.Context, accessToken, externalID, from, to string) ([]json.RawMessage, error)
	cardTxns     func(ctx context.Context, accessToken, externalID, from, to string) ([]json.RawMessage, error)
}

func (m *mockBankClient) ExchangeCode(ctx context.Context, code string) (driven.TokenGrant, error) {
	if m.exchangeCode == nil {
		return driven.TokenGrant{}, nil
	}
	return m.exchangeCode(ctx, code)
}

func (m *mockBankClient) Refresh(ctx context.Context, refreshToken string) (driven.TokenGrant, error) {
	if m.refresh == nil {
		return driven.TokenGrant{}, nil
	}
	return m.refresh(ctx, refreshToken)
}

func (m *mockBankClient) ListAccounts(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"results":[]}`), nil
}

func (m *mockBankClient) ListCards(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"results":[]}`), nil
}

func (m *mockBankClient) ListAccountTransactions(ctx context.Context, accessToken, externalID, from, to string) ([]json.RawMessage, error) {
	if m.accountTxns == nil {
		return []json.RawMessage{}, nil
	}
	return m.accountTxns(ctx, accessToken, externalID, from, to)
}

func (m *mockBankClient) ListCardTransactions(ctx context.Context, accessToken, externalID, from, to string) ([]json.RawMessage, error) {
	if m.cardTxns == nil {
		return []json.RawMessage{}, nil
	}
	return m.cardTxns(ctx, accessToken, externalID, from, to)
}

// mockAccountStore serves accounts from a fixed slice.
type mockAccountStore struct {
	accounts []model.Account
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
	if m.find(account.Name, account.Institution) != nil {
		return driven.ErrAccountAlreadyExists
	}
	m.accounts = append(m.accounts, account)
	return nil
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

type importCall struct {
	AccountID    string
	Transactions []json.RawMessage
}

// mockImportClient records forwarded batches; safe for concurrent use.
type mockImportClient struct {
	mu    sync.Mutex
	calls []importCall
	err   error
}

func (m *mockImportClient) Import(_ context.Context, downstreamAccountID string, transactions []json.RawMessage) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, importCall{AccountID: downstreamAccountID, Transactions: transactions})
	return json.RawMessage(`{"imported":true}`), nil
}

func (m *mockImportClient) recorded() []importCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]importCall(nil), m.calls...)
}
