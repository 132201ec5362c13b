package driven

import (
	"context"
	"errors"

	"github.com/mfell/hornbill/internal/domain/model"
)

// Sentinel errors returned by AccountStore implementations.
var (
	// ErrAccountNotFound indicates no account row matches (name, institution).
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists indicates an account with the same
	// (name, institution) is already provisioned.
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrAccountNotLinked indicates the account has no downstream
	// identifier, so there is nowhere to forward its transactions.
	ErrAccountNotLinked = errors.New("account has no downstream account id")
)

// AccountStore defines the driven port for account persistence and
// resolution. Resolution queries assume at most one row per
// (name, institution); Add enforces that with ErrAccountAlreadyExists.
type AccountStore interface {
	// Add provisions a new account row.
	Add(ctx context.Context, account model.Account) error

	// GetExternalID resolves the upstream provider's identifier for the
	// account. Returns ErrAccountNotFound if no row matches.
	GetExternalID(ctx context.Context, name, institution string) (string, error)

	// IsLiability reports whether the account's transactions are fetched
	// via the cards endpoint. Returns ErrAccountNotFound if no row matches.
	IsLiability(ctx context.Context, name, institution string) (bool, error)

	// GetDownstreamID resolves the import service's identifier for the
	// account. Returns ("", nil) when the row is missing or not linked.
	GetDownstreamID(ctx context.Context, name, institution string) (string, error)

	// ListActive returns every account with a downstream identifier, in no
	// particular order.
	ListActive(ctx context.Context) ([]model.AccountRef, error)

	// ListAll returns every provisioned account.
	ListAll(ctx context.Context) ([]model.Account, error)
}
