package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mfell/hornbill/internal/domain/model"
	"github.com/mfell/hornbill/internal/domain/port/driven"
)

// provider is the fixed upstream provider name scoping all token rows.
const provider = "truelayer"

// Compile-time interface satisfaction check.
var _ driven.TokenStore = (*TokenRepo)(nil)

// TokenRepo is the SQLite implementation of the TokenStore port interface.
// Rows are keyed by (provider, institution); saves are upserts, so at most
// one row exists per institution and a later write always wins.
type TokenRepo struct {
	db *DB
}

// NewTokenRepo creates a new TokenRepo backed by the given DB.
func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// GetToken retrieves the stored token record for the institution.
// Returns nil, nil when no record exists.
func (r *TokenRepo) GetToken(ctx context.Context, institution string) (*model.TokenRecord, error) {
	const query = `SELECT access_token, refresh_token, token_type, scope, expires_at, updated_at
		FROM tokens WHERE provider = ? AND institution = ?`

	var rec model.TokenRecord
	err := r.db.Reader.QueryRowContext(ctx, query, provider, institution).Scan(
		&rec.AccessToken,
		&rec.RefreshToken,
		&rec.TokenType,
		&rec.Scope,
		&rec.ExpiresAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token for %s: %w", institution, err)
	}

	return &rec, nil
}

// SaveToken stores or fully replaces the token record for the institution.
// The updated_at column is stamped here; all other fields come from the caller.
func (r *TokenRepo) SaveToken(ctx context.Context, institution string, rec model.TokenRecord) error {
	const query = `INSERT INTO tokens (provider, institution, access_token, refresh_token, token_type, scope, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, institution) DO UPDATE SET
			access_token=excluded.access_token,
			refresh_token=excluded.refresh_token,
			token_type=excluded.token_type,
			scope=excluded.scope,
			expires_at=excluded.expires_at,
			updated_at=excluded.updated_at`

	_, err := r.db.Writer.ExecContext(ctx, query,
		provider,
		institution,
		rec.AccessToken,
		rec.RefreshToken,
		rec.TokenType,
		rec.Scope,
		rec.ExpiresAt,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save token for %s: %w", institution, err)
	}

	return nil
}
