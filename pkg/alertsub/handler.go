package alertsub

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veriscope/veriscope/internal/httpserver"
)

type Handler struct {
	logger *slog.Logger
	store  *Store
}

func NewHandler(logger *slog.Logger, pool *pgxpool.Pool) *Handler {
	return &Handler{logger: logger, store: NewStore(pool)}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Patch("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id := httpserver.IdentityFromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	sub, err := h.store.Create(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		h.logger.Error("creating alert subscription", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create subscription")
		return
	}
	httpserver.Respond(w, http.StatusCreated, sub)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := httpserver.IdentityFromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	subs, err := h.store.List(r.Context(), id.TenantID)
	if err != nil {
		h.logger.Error("listing alert subscriptions", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list subscriptions")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"subscriptions": subs, "count": len(subs)})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := httpserver.IdentityFromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	subID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid subscription ID")
		return
	}

	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	sub, err := h.store.Update(r.Context(), id.TenantID, subID, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "subscription not found")
			return
		}
		h.logger.Error("updating alert subscription", "error", err, "id", subID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update subscription")
		return
	}
	httpserver.Respond(w, http.StatusOK, sub)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := httpserver.IdentityFromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	subID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid subscription ID")
		return
	}

	if err := h.store.Delete(r.Context(), id.TenantID, subID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "subscription not found")
			return
		}
		h.logger.Error("deleting alert subscription", "error", err, "id", subID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to delete subscription")
		return
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}
