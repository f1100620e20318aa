package activity

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Handlers provides HTTP handlers for audit and notification endpoints
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates new activity handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers activity routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit-logs", h.ListAuditLogs).Methods("GET")
	router.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	router.HandleFunc("/notifications/{id}/read", h.MarkRead).Methods("POST")
}

// ListAuditLogs handles GET /audit-logs
func (h *Handlers) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.service.ListAuditLogs(r.Context(), claims, r.URL.Query().Get("user_id"), limit)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	if entries == nil {
		entries = []*types.AuditLog{}
	}

	h.writeJSONResponse(w, http.StatusOK, entries)
}

// ListNotifications handles GET /notifications
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	notifications, err := h.service.ListNotifications(r.Context(), claims, unreadOnly)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	if notifications == nil {
		notifications = []*types.Notification{}
	}

	h.writeJSONResponse(w, http.StatusOK, notifications)
}

// MarkRead handles POST /notifications/{id}/read
func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	n, err := h.service.MarkRead(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, n)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse maps service errors onto HTTP error payloads
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, err error) {
	if ce, ok := types.AsClinicError(err); ok {
		h.writeJSONResponse(w, ce.HTTPStatus(), map[string]interface{}{
			"error":  ce.Code,
			"detail": ce.Detail,
		})
		return
	}

	h.logger.WithError(err).Error("Unhandled internal error")
	h.writeJSONResponse(w, http.StatusInternalServerError, map[string]interface{}{
		"error":  types.ErrCodeInternalError,
		"detail": "An internal error occurred.",
	})
}
