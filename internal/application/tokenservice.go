// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mfell/hornbill/internal/domain/model"
	"github.com/mfell/hornbill/internal/domain/port/driven"
)

// TokenSkew is the safety margin subtracted from token expiry. A token
// expiring within this window is refreshed before being handed out, covering
// clock drift and in-flight request latency.
const TokenSkew = 60 * time.Second

// TokenService owns the per-institution token lifecycle: bootstrap from a
// one-time authorization code, proactive refresh inside the skew window, and
// durable persistence through the TokenStore. Callers receive a token valid
// for at least TokenSkew and must not cache it beyond the current operation.
type TokenService struct {
	store driven.TokenStore
	bank  driven.BankClient
	code  string

	// group deduplicates concurrent bootstrap/refresh per institution:
	// a caller observing an in-flight refresh waits for its result instead
	// of issuing a duplicate upstream call.
	group singleflight.Group

	now func() time.Time
}

// NewTokenService creates a TokenService. code is the one-time authorization
// code for first bootstrap; it may be empty when tokens are already stored.
func NewTokenService(store driven.TokenStore, bank driven.BankClient, code string) *TokenService {
	return &TokenService{
		store: store,
		bank:  bank,
		code:  code,
		now:   time.Now,
	}
}

// ValidAccessToken returns an access token for the institution that is valid
// for at least TokenSkew from the moment of return. Expiry is re-evaluated
// against the current time on every call. When no token is stored and no
// authorization code is configured it fails with ErrCredentialsUnavailable.
func (s *TokenService) ValidAccessToken(ctx context.Context, institution string) (string, error) {
	rec, err := s.store.GetToken(ctx, institution)
	if err != nil {
		return "", err
	}
	if rec != nil && !rec.ExpiresWithin(s.now(), TokenSkew) {
		return rec.AccessToken, nil
	}

	v, err, _ := s.group.Do(institution, func() (any, error) {
		return s.ensureFresh(ctx, institution)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// ensureFresh runs inside the singleflight group. It re-reads the store
// first: a caller that queued behind an in-flight refresh must not trigger
// a second one.
func (s *TokenService) ensureFresh(ctx context.Context, institution string) (string, error) {
	rec, err := s.store.GetToken(ctx, institution)
	if err != nil {
		return "", err
	}

	if rec == nil {
		return s.bootstrap(ctx, institution)
	}

	if rec.ExpiresWithin(s.now(), TokenSkew) {
		return s.refresh(ctx, institution, *rec)
	}

	return rec.AccessToken, nil
}

// bootstrap exchanges the configured one-time authorization code for a token
// pair and persists it. The code is single-use: a failed exchange is surfaced
// as-is and never retried automatically.
func (s *TokenService) bootstrap(ctx context.Context, institution string) (string, error) {
	if s.code == "" {
		return "", fmt.Errorf("bootstrap %s: %w", institution, driven.ErrCredentialsUnavailable)
	}

	grant, err := s.bank.ExchangeCode(ctx, s.code)
	if err != nil {
		return "", fmt.Errorf("bootstrap %s: %w", institution, err)
	}

	rec := recordFromGrant(grant, grant.Scope, s.now())
	if err := s.store.SaveToken(ctx, institution, rec); err != nil {
		return "", fmt.Errorf("bootstrap %s: %w", institution, err)
	}

	slog.Info("token bootstrapped from authorization code", "institution", institution, "expires_at", rec.ExpiresAt)
	return rec.AccessToken, nil
}

// refresh obtains a new token pair from the stored refresh token. The scope
// of the previous record is threaded through explicitly: some grants omit
// scope on refresh responses, and the provider's value is never trusted over
// what was originally granted.
func (s *TokenService) refresh(ctx context.Context, institution string, prev model.TokenRecord) (string, error) {
	grant, err := s.bank.Refresh(ctx, prev.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh %s: %w", institution, err)
	}

	rec := recordFromGrant(grant, prev.Scope, s.now())
	if err := s.store.SaveToken(ctx, institution, rec); err != nil {
		return "", fmt.Errorf("refresh %s: %w", institution, err)
	}

	slog.Info("token refreshed", "institution", institution, "expires_at", rec.ExpiresAt)
	return rec.AccessToken, nil
}

// recordFromGrant converts a token endpoint response into a storable record,
// resolving the relative expires_in into an absolute epoch expiry.
func recordFromGrant(grant driven.TokenGrant, scope string, now time.Time) model.TokenRecord {
	return model.TokenRecord{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    grant.TokenType,
		Scope:        scope,
		ExpiresAt:    now.Unix() + grant.ExpiresIn,
	}
}
