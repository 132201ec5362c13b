package model

import "time"

// AccountKind classifies how an account's transactions are fetched upstream.
type AccountKind string

const (
	// KindAsset routes transaction fetching through the accounts endpoint.
	KindAsset AccountKind = "asset"

	// KindLiability routes transaction fetching through the cards endpoint
	// (credit-card-style accounts).
	KindLiability AccountKind = "liability"
)

// Account is a logical account provisioned against an institution. The
// (Name, Institution) pair is unique. ExternalAccountID is the upstream
// provider's identifier; DownstreamAccountID is the import service's
// identifier. Accounts with a DownstreamAccountID are "linked" and are the
// only ones the periodic importer iterates.
type Account struct {
	ID                  int64
	Name                string
	Kind                AccountKind
	Institution         string
	ExternalAccountID   string
	DownstreamAccountID string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AccountRef identifies an account for iteration without loading the full row.
type AccountRef struct {
	Name        string
	Institution string
}
