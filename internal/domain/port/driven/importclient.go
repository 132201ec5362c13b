package driven

import (
	"context"
	"encoding/json"
)

// ImportClient defines the driven port for the downstream import service
// that ingests fetched transactions.
type ImportClient interface {
	// Import forwards a batch of transactions for the downstream account.
	// On a rejected request the error carries the downstream status and
	// body verbatim; on a connection failure it is distinguishable as
	// unreachable.
	Import(ctx context.Context, downstreamAccountID string, transactions []json.RawMessage) (json.RawMessage, error)
}
