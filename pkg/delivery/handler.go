package delivery

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veriscope/veriscope/internal/httpserver"
	"github.com/veriscope/veriscope/pkg/alertsub"
)

type Handler struct {
	logger  *slog.Logger
	store   *Store
	service *Service
	subs    *alertsub.Store
}

func NewHandler(logger *slog.Logger, store *Store, service *Service, subs *alertsub.Store) *Handler {
	return &Handler{logger: logger, store: store, service: service, subs: subs}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/retry", h.handleRetry)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := httpserver.IdentityFromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	params, err := httpserver.ParseDeliveryCursorParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var f ListFilter
	if status := r.URL.Query().Get("status"); status != "" {
		f.Status = &status
	}
	if subID := r.URL.Query().Get("subscription_id"); subID != "" {
		parsed, err := uuid.Parse(subID)
		if err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid subscription_id")
			return
		}
		f.SubscriptionID = &parsed
	}

	items, err := h.store.List(r.Context(), id.TenantID, f, params)
	if err != nil {
		h.logger.Error("listing deliveries", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list deliveries")
		return
	}

	page := httpserver.NewCursorPage(items, params.Limit, func(d Delivery) httpserver.Cursor {
		return httpserver.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	httpserver.Respond(w, http.StatusOK, page)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := httpserver.IdentityFromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	deliveryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid delivery ID")
		return
	}

	d, err := h.store.GetByID(r.Context(), id.TenantID, deliveryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "delivery not found")
			return
		}
		h.logger.Error("loading delivery", "error", err, "id", deliveryID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to load delivery")
		return
	}

	attempts, err := h.store.ListAttempts(r.Context(), deliveryID)
	if err != nil {
		h.logger.Error("loading delivery attempts", "error", err, "id", deliveryID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to load delivery attempts")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"delivery": d, "attempts": attempts})
}

// handleRetry is the operators' manual re-send surface for a failed
// delivery. It calls Service.RetryDeliveryByID, the same primitive the DLQ
// drainer calls directly.
func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := httpserver.IdentityFromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	deliveryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid delivery ID")
		return
	}

	d, err := h.store.GetByID(r.Context(), id.TenantID, deliveryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "delivery not found")
			return
		}
		h.logger.Error("loading delivery", "error", err, "id", deliveryID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to load delivery")
		return
	}

	sub, err := h.subs.GetByID(r.Context(), id.TenantID, d.SubscriptionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "subscription no longer exists")
			return
		}
		h.logger.Error("loading subscription", "error", err, "id", d.SubscriptionID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to load subscription")
		return
	}

	retried, err := h.service.RetryDeliveryByID(r.Context(), id.TenantID, deliveryID, sub)
	if err != nil {
		h.logger.Error("retrying delivery", "error", err, "id", deliveryID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to retry delivery")
		return
	}
	httpserver.Respond(w, http.StatusOK, retried)
}
