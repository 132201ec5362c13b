package model

import "time"

// TokenRecord holds the OAuth2 token pair stored for one institution.
// ExpiresAt and UpdatedAt are Unix epoch seconds; ExpiresAt is always the
// provider-reported absolute expiry, never a relative lifetime.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    int64
	UpdatedAt    int64
}

// ExpiresWithin reports whether the access token expires at or before
// now + margin.
func (t TokenRecord) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return t.ExpiresAt <= now.Add(margin).Unix()
}
