// Package httphandler is the HTTP driving adapter serving the JSON API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mfell/hornbill/internal/adapter/driven/importer"
	"github.com/mfell/hornbill/internal/adapter/driven/truelayer"
	"github.com/mfell/hornbill/internal/application"
	"github.com/mfell/hornbill/internal/domain/model"
	"github.com/mfell/hornbill/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	importSvc    *application.ImportService
	accountStore driven.AccountStore
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(importSvc *application.ImportService, accountStore driven.AccountStore, logger *slog.Logger) *Handler {
	return &Handler{
		importSvc:    importSvc,
		accountStore: accountStore,
		logger:       logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("POST /api/v1/import", h.ImportAll)
	mux.HandleFunc("POST /api/v1/import/{institution}/{account}", h.ImportAccount)
	mux.HandleFunc("GET /api/v1/institutions/{institution}/accounts", h.ListUpstreamAccounts)
	mux.HandleFunc("GET /api/v1/institutions/{institution}/cards", h.ListUpstreamCards)
	mux.HandleFunc("GET /api/v1/accounts", h.ListAccounts)
	mux.HandleFunc("POST /api/v1/accounts", h.AddAccount)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ImportAll runs one full import cycle over every linked account.
func (h *Handler) ImportAll(w http.ResponseWriter, r *http.Request) {
	processed, failed, err := h.importSvc.ImportAll(r.Context())
	if err != nil {
		h.logger.Error("import cycle failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ImportCycleResponse{Accounts: processed, Errors: failed})
}

// ImportAccount imports transactions for a single account and returns the
// import service's response body.
func (h *Handler) ImportAccount(w http.ResponseWriter, r *http.Request) {
	institution := r.PathValue("institution")
	account := r.PathValue("account")

	resp, err := h.importSvc.ImportAccount(r.Context(), institution, account)
	if err != nil {
		h.writeServiceError(w, err, "import account failed", "account", account, "institution", institution)
		return
	}

	writeRawJSON(w, http.StatusOK, resp)
}

// ListUpstreamAccounts proxies the provider's account listing for an institution.
func (h *Handler) ListUpstreamAccounts(w http.ResponseWriter, r *http.Request) {
	institution := r.PathValue("institution")

	body, err := h.importSvc.UpstreamAccounts(r.Context(), institution)
	if err != nil {
		h.writeServiceError(w, err, "list upstream accounts failed", "institution", institution)
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

// ListUpstreamCards proxies the provider's card listing for an institution.
func (h *Handler) ListUpstreamCards(w http.ResponseWriter, r *http.Request) {
	institution := r.PathValue("institution")

	body, err := h.importSvc.UpstreamCards(r.Context(), institution)
	if err != nil {
		h.writeServiceError(w, err, "list upstream cards failed", "institution", institution)
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

// ListAccounts returns all provisioned accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		resp = append(resp, toAccountResponse(account))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddAccount provisions a new logical account. Duplicate (name, institution)
// pairs are rejected with 409.
func (h *Handler) AddAccount(w http.ResponseWriter, r *http.Request) {
	var req AddAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Name == "" || req.Institution == "" {
		writeError(w, http.StatusBadRequest, "name and institution are required")
		return
	}

	kind := model.AccountKind(req.Kind)
	if kind != model.KindAsset && kind != model.KindLiability {
		writeError(w, http.StatusBadRequest, "kind must be asset or liability")
		return
	}

	account := model.Account{
		Name:                req.Name,
		Kind:                kind,
		Institution:         req.Institution,
		ExternalAccountID:   req.ExternalAccountID,
		DownstreamAccountID: req.DownstreamAccountID,
	}

	if err := h.accountStore.Add(r.Context(), account); err != nil {
		if errors.Is(err, driven.ErrAccountAlreadyExists) {
			writeError(w, http.StatusConflict, "account already exists")
			return
		}
		h.logger.Error("failed to add account", "account", req.Name, "institution", req.Institution, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

// writeServiceError maps service-layer errors to HTTP statuses: unknown or
// unlinked accounts and missing credentials are client errors, upstream
// failures are 502, and a downstream rejection passes its status and body
// through verbatim.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string, logArgs ...any) {
	h.logger.Error(msg, append(logArgs, "error", err)...)

	var statusErr *importer.StatusError
	if errors.As(err, &statusErr) {
		// The downstream rejection is returned verbatim so the caller sees
		// exactly what the import service said.
		writeRawJSON(w, statusErr.Status, []byte(statusErr.Body))
		return
	}

	var unreachableErr *importer.UnreachableError
	if errors.As(err, &unreachableErr) {
		writeError(w, http.StatusBadGateway, "import service unreachable")
		return
	}

	var tokenErr *truelayer.TokenError
	if errors.As(err, &tokenErr) {
		writeError(w, http.StatusBadGateway, tokenErr.Error())
		return
	}

	var apiErr *truelayer.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, apiErr.Error())
		return
	}

	switch {
	case errors.Is(err, driven.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, driven.ErrAccountNotLinked):
		writeError(w, http.StatusConflict, "account has no downstream account id")
	case errors.Is(err, driven.ErrCredentialsUnavailable):
		writeError(w, http.StatusConflict, "no stored token and no authorization code configured")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
