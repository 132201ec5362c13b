package driven

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrCredentialsUnavailable indicates no token is stored for an institution
// and no one-time authorization code is configured to bootstrap one. Not
// retryable; an operator must supply a code.
var ErrCredentialsUnavailable = errors.New("no stored token and no authorization code configured")

// TokenGrant is the upstream token endpoint's response to a code exchange or
// refresh. Scope may be empty on refresh responses; callers decide how to
// carry the previous scope forward.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
}

// BankClient defines the driven port for the upstream OAuth and data provider.
type BankClient interface {
	// ExchangeCode swaps a one-time authorization code for a token pair.
	// The code is single-use; implementations never retry a failed exchange.
	ExchangeCode(ctx context.Context, code string) (TokenGrant, error)

	// Refresh obtains a new token pair from a refresh token.
	Refresh(ctx context.Context, refreshToken string) (TokenGrant, error)

	// ListAccounts returns the provider's raw account listing.
	ListAccounts(ctx context.Context, accessToken string) (json.RawMessage, error)

	// ListCards returns the provider's raw card listing.
	ListCards(ctx context.Context, accessToken string) (json.RawMessage, error)

	// ListAccountTransactions fetches transactions for a bank account over
	// the inclusive ISO-date window [from, to].
	ListAccountTransactions(ctx context.Context, accessToken, externalID, from, to string) ([]json.RawMessage, error)

	// ListCardTransactions fetches transactions for a card over the
	// inclusive ISO-date window [from, to].
	ListCardTransactions(ctx context.Context, accessToken, externalID, from, to string) ([]json.RawMessage, error)
}
