package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mfell/hornbill/internal/domain/model"
	"github.com/mfell/hornbill/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port interface.
type AccountRepo struct {
	db *DB
}

// NewAccountRepo creates a new AccountRepo backed by the given DB.
func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Add provisions a new account. Returns ErrAccountAlreadyExists when an
// account with the same (name, institution) is already provisioned.
func (r *AccountRepo) Add(ctx context.Context, account model.Account) error {
	const query = `INSERT INTO accounts (name, kind, institution, external_account_id, downstream_account_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.Writer.ExecContext(ctx, query,
		account.Name,
		string(account.Kind),
		account.Institution,
		nullable(account.ExternalAccountID),
		nullable(account.DownstreamAccountID),
		now,
		now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("add account %s (%s): %w", account.Name, account.Institution, driven.ErrAccountAlreadyExists)
		}
		return fmt.Errorf("add account %s (%s): %w", account.Name, account.Institution, err)
	}

	return nil
}

// GetExternalID resolves the upstream provider's identifier for the account.
func (r *AccountRepo) GetExternalID(ctx context.Context, name, institution string) (string, error) {
	const query = `SELECT external_account_id FROM accounts WHERE name = ? AND institution = ?`

	var externalID sql.NullString
	err := r.db.Reader.QueryRowContext(ctx, query, name, institution).Scan(&externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("account %s (%s): %w", name, institution, driven.ErrAccountNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get external id for %s (%s): %w", name, institution, err)
	}

	return externalID.String, nil
}

// IsLiability reports whether the account's transactions are fetched via the
// cards endpoint.
func (r *AccountRepo) IsLiability(ctx context.Context, name, institution string) (bool, error) {
	const query = `SELECT kind FROM accounts WHERE name = ? AND institution = ?`

	var kind string
	err := r.db.Reader.QueryRowContext(ctx, query, name, institution).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("account %s (%s): %w", name, institution, driven.ErrAccountNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("get kind for %s (%s): %w", name, institution, err)
	}

	return model.AccountKind(kind) == model.KindLiability, nil
}

// GetDownstreamID resolves the import service's identifier for the account.
// Returns "", nil when the row is missing or the account is not linked.
func (r *AccountRepo) GetDownstreamID(ctx context.Context, name, institution string) (string, error) {
	const query = `SELECT downstream_account_id FROM accounts WHERE name = ? AND institution = ?`

	var downstreamID sql.NullString
	err := r.db.Reader.QueryRowContext(ctx, query, name, institution).Scan(&downstreamID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get downstream id for %s (%s): %w", name, institution, err)
	}

	return downstreamID.String, nil
}

// ListActive returns every account with a downstream identifier.
func (r *AccountRepo) ListActive(ctx context.Context) ([]model.AccountRef, error) {
	const query = `SELECT name, institution FROM accounts WHERE downstream_account_id IS NOT NULL`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	defer rows.Close()

	var refs []model.AccountRef
	for rows.Next() {
		var ref model.AccountRef
		if err := rows.Scan(&ref.Name, &ref.Institution); err != nil {
			return nil, fmt.Errorf("scan account ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active accounts: %w", err)
	}

	return refs, nil
}

// ListAll returns all provisioned accounts ordered by institution and name.
func (r *AccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	const query = `SELECT id, name, kind, institution, external_account_id, downstream_account_id, created_at, updated_at
		FROM accounts ORDER BY institution, name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*model.Account, error) {
	var account model.Account
	var kind string
	var externalID, downstreamID sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&account.ID, &account.Name, &kind, &account.Institution, &externalID, &downstreamID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	account.Kind = model.AccountKind(kind)
	account.ExternalAccountID = externalID.String
	account.DownstreamAccountID = downstreamID.String

	account.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	account.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &account, nil
}

// nullable converts an empty string to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
