package driven

import (
	"context"

	"github.com/mfell/hornbill/internal/domain/model"
)

// TokenStore defines the driven port for durable token persistence.
// Records are keyed by institution; the adapter scopes them to the fixed
// upstream provider.
type TokenStore interface {
	// GetToken retrieves the stored token record for the institution.
	// Returns (nil, nil) when no record exists.
	GetToken(ctx context.Context, institution string) (*model.TokenRecord, error)

	// SaveToken stores or fully replaces the token record for the
	// institution. Concurrent saves for the same institution are safe;
	// the later write wins.
	SaveToken(ctx context.Context, institution string, rec model.TokenRecord) error
}
