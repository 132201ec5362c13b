package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfell/hornbill/internal/domain/port/driven"
)

// ImportService orchestrates one import for a single account: ensure a fresh
// token, resolve the account's external identifier and kind, fetch its
// transactions from the upstream provider, and forward them downstream.
type ImportService struct {
	tokens   *TokenService
	accounts driven.AccountStore
	bank     driven.BankClient
	imports  driven.ImportClient
	fromDate string
	now      func() time.Time
}

// NewImportService creates an ImportService. fromDate is the inclusive ISO
// start date of the transaction window; the end date is always today.
func NewImportService(
	tokens *TokenService,
	accounts driven.AccountStore,
	bank driven.BankClient,
	imports driven.ImportClient,
	fromDate string,
) *ImportService {
	return &ImportService{
		tokens:   tokens,
		accounts: accounts,
		bank:     bank,
		imports:  imports,
		fromDate: fromDate,
		now:      time.Now,
	}
}

// ImportAccount fetches the account's transactions and forwards them to the
// import service, returning the downstream response body. The account's kind
// selects the upstream endpoint: liability accounts go through the cards
// path, asset accounts through the accounts path.
func (s *ImportService) ImportAccount(ctx context.Context, institution, name string) (json.RawMessage, error) {
	token, err := s.tokens.ValidAccessToken(ctx, institution)
	if err != nil {
		return nil, err
	}

	liability, err := s.accounts.IsLiability(ctx, name, institution)
	if err != nil {
		return nil, err
	}

	externalID, err := s.accounts.GetExternalID(ctx, name, institution)
	if err != nil {
		return nil, err
	}

	from := s.fromDate
	to := s.now().Format("2006-01-02")

	var transactions []json.RawMessage
	if liability {
		transactions, err = s.bank.ListCardTransactions(ctx, token, externalID, from, to)
	} else {
		transactions, err = s.bank.ListAccountTransactions(ctx, token, externalID, from, to)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("transactions fetched",
		"account", name,
		"institution", institution,
		"liability", liability,
		"count", len(transactions),
	)

	downstreamID, err := s.accounts.GetDownstreamID(ctx, name, institution)
	if err != nil {
		return nil, err
	}
	if downstreamID == "" {
		return nil, fmt.Errorf("account %s (%s): %w", name, institution, driven.ErrAccountNotLinked)
	}

	resp, err := s.imports.Import(ctx, downstreamID, transactions)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// ImportAll runs one import for every linked account. A failing account is
// logged with full context and counted; it never aborts the rest of the
// cycle. Returns the number of accounts processed and the number that failed.
func (s *ImportService) ImportAll(ctx context.Context) (processed, failed int, err error) {
	refs, err := s.accounts.ListActive(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list active accounts: %w", err)
	}

	for _, ref := range refs {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}

		if _, err := s.ImportAccount(ctx, ref.Institution, ref.Name); err != nil {
			slog.Error("account import failed",
				"account", ref.Name,
				"institution", ref.Institution,
				"error", err,
			)
			failed++
		}
		processed++
	}

	return processed, failed, nil
}

// UpstreamAccounts returns the provider's raw account listing for the
// institution, ensuring a fresh token first.
func (s *ImportService) UpstreamAccounts(ctx context.Context, institution string) (json.RawMessage, error) {
	token, err := s.tokens.ValidAccessToken(ctx, institution)
	if err != nil {
		return nil, err
	}
	return s.bank.ListAccounts(ctx, token)
}

// UpstreamCards returns the provider's raw card listing for the institution,
// ensuring a fresh token first.
func (s *ImportService) UpstreamCards(ctx context.Context, institution string) (json.RawMessage, error) {
	token, err := s.tokens.ValidAccessToken(ctx, institution)
	if err != nil {
		return nil, err
	}
	return s.bank.ListCards(ctx, token)
}
