package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mfell/hornbill/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeRawJSON writes a pre-encoded JSON body with the given status code.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// AccountResponse is the JSON representation of a provisioned account.
type AccountResponse struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Kind                string `json:"kind"`
	Institution         string `json:"institution"`
	ExternalAccountID   string `json:"external_account_id,omitempty"`
	DownstreamAccountID string `json:"downstream_account_id,omitempty"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// AddAccountRequest is the JSON body for the account provisioning endpoint.
type AddAccountRequest struct {
	Name                string `json:"name"`
	Kind                string `json:"kind"`
	Institution         string `json:"institution"`
	ExternalAccountID   string `json:"external_account_id"`
	DownstreamAccountID string `json:"downstream_account_id"`
}

// ImportCycleResponse is the JSON representation of a completed import cycle.
type ImportCycleResponse struct {
	Accounts int `json:"accounts"`
	Errors   int `json:"errors"`
}

// toAccountResponse converts a domain Account to its JSON response representation.
func toAccountResponse(account model.Account) AccountResponse {
	return AccountResponse{
		ID:                  account.ID,
		Name:                account.Name,
		Kind:                string(account.Kind),
		Institution:         account.Institution,
		ExternalAccountID:   account.ExternalAccountID,
		DownstreamAccountID: account.DownstreamAccountID,
		CreatedAt:           account.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           account.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
