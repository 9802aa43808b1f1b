package secretshandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/barnyard/api"
	"github.com/ruteri/barnyard/interfaces"
	"github.com/ruteri/barnyard/secrets"
)

// MaxSecretSize bounds the request body of a store request.
const MaxSecretSize = 1 << 20

// ErrMissingIdentity is returned for store and load requests without an
// identity header.
var ErrMissingIdentity = errors.New("missing " + api.IdentityHeader + " header")

// SecretsService is the subset of secrets.Service the handler needs.
type SecretsService interface {
	Store(ctx context.Context, identity interfaces.Identity, name string, plaintext []byte) (string, error)
	Load(ctx context.Context, identity interfaces.Identity, name string) ([]byte, error)
	Names() []string
}

// Handler processes secrets API requests.
type Handler struct {
	service SecretsService
	log     *slog.Logger
}

// NewHandler creates a handler. Store and load requests must name the caller
// in the identity header; there is no anonymous fallback.
func NewHandler(service SecretsService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Put("/api/secrets/{name}", h.HandleStore)
	r.Get("/api/secrets/{name}", h.HandleLoad)
	r.Get("/api/secrets", h.HandleList)
}

// HandleStore stores the request body as a secret.
//
// URL format: PUT /api/secrets/{name}
// Response: api.StoreSecretResponse
func (h *Handler) HandleStore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxSecretSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "secret exceeds maximum size")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	resource, err := h.service.Store(r.Context(), identity, name, body)
	if err != nil {
		h.writeServiceError(w, "store", name, err)
		return
	}

	writeJSON(w, http.StatusOK, api.StoreSecretResponse{Name: name, Resource: resource})
}

// HandleLoad returns the plaintext of a secret the caller was granted.
//
// URL format: GET /api/secrets/{name}
// Response: raw plaintext as application/octet-stream
func (h *Handler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	plaintext, err := h.service.Load(r.Context(), identity, name)
	if err != nil {
		h.writeServiceError(w, "load", name, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(plaintext); err != nil {
		h.log.Debug("Failed to write response", "err", err)
	}
}

// HandleList returns the names of all stored secrets.
//
// URL format: GET /api/secrets
// Response: api.ListSecretsResponse
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	names := h.service.Names()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, api.ListSecretsResponse{Names: names})
}

// identity reads the caller identity, answering 401 when it is absent.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (interfaces.Identity, bool) {
	identity := r.Header.Get(api.IdentityHeader)
	if identity == "" {
		writeError(w, StatusFor(ErrMissingIdentity), ErrMissingIdentity.Error())
		return "", false
	}
	return interfaces.Identity(identity), true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, operation, name string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Secrets request failed",
			slog.String("operation", operation),
			slog.String("name", name),
			"err", err)
	}
	writeError(w, status, err.Error())
}

// StatusFor maps a secrets service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrSecretNotFound):
		return http.StatusNotFound
	case errors.Is(err, secrets.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}
