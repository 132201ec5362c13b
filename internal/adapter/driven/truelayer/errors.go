package truelayer

import "fmt"

// TokenError indicates the token endpoint rejected a code exchange or
// refresh. It carries the upstream status and body so callers can surface
// the rejection without retrying.
type TokenError struct {
	Op     string
	Status int
	Body   string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s: upstream responded %d: %s", e.Op, e.Status, e.Body)
}

// APIError indicates a data endpoint responded with a non-2xx status.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: upstream responded %d: %s", e.Op, e.Status, e.Body)
}
