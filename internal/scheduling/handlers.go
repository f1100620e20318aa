package scheduling

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Handlers provides HTTP handlers for scheduling operations
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates new scheduling handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers scheduling routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/appointments", h.CreateAppointment).Methods("POST")
	router.HandleFunc("/appointments", h.ListAppointments).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.GetAppointment).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods("PUT", "PATCH")
	router.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods("DELETE")
	router.HandleFunc("/appointments/{id}/cancel", h.CancelAppointment).Methods("POST")
	router.HandleFunc("/appointments/{id}/reschedule", h.RescheduleAppointment).Methods("POST")
	router.HandleFunc("/appointments/{id}/update_status", h.UpdateAppointmentStatus).Methods("POST")

	router.HandleFunc("/schedules", h.CreateSchedule).Methods("POST")
	router.HandleFunc("/schedules", h.ListSchedules).Methods("GET")
	router.HandleFunc("/schedules/{id}", h.GetSchedule).Methods("GET")
	router.HandleFunc("/schedules/{id}", h.UpdateSchedule).Methods("PATCH")
	router.HandleFunc("/schedules/{id}", h.DeleteSchedule).Methods("DELETE")
}

// CreateAppointment handles POST /appointments
func (h *Handlers) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required."))
		return
	}

	var req types.AppointmentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	apt, err := h.service.CreateAppointment(r.Context(), claims, &req)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, apt)
}

// GetAppointment handles GET /appointments/{id}
func (h *Handlers) GetAppointment(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	apt, err := h.service.GetAppointment(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, apt)
}

// ListAppointments handles GET /appointments
func (h *Handlers) ListAppointments(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	filters := &types.AppointmentFilters{
		Status: types.AppointmentStatus(r.URL.Query().Get("status")),
	}

	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.FromDate = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.ToDate = t
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Offset = n
		}
	}

	// staff-only free filtering, enforced by the service
	filters.DoctorID = r.URL.Query().Get("doctor_id")
	filters.PatientID = r.URL.Query().Get("patient_id")

	appointments, err := h.service.ListAppointments(r.Context(), claims, filters)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	if appointments == nil {
		appointments = []*types.Appointment{}
	}

	h.writeJSONResponse(w, http.StatusOK, appointments)
}

// CancelAppointment handles POST /appointments/{id}/cancel
func (h *Handlers) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	apt, err := h.service.CancelAppointment(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"detail":      "Appointment cancelled successfully.",
		"appointment": apt,
	})
}

// RescheduleAppointment handles POST /appointments/{id}/reschedule
func (h *Handlers) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req types.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	apt, err := h.service.RescheduleAppointment(r.Context(), claims, id, &req)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"detail":      "Appointment rescheduled successfully.",
		"appointment": apt,
	})
}

// UpdateAppointmentStatus handles POST /appointments/{id}/update_status
func (h *Handlers) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req types.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	apt, err := h.service.UpdateAppointmentStatus(r.Context(), claims, id, req.Status)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"detail":      "Status updated successfully.",
		"appointment": apt,
	})
}

// UpdateAppointment handles PUT /appointments/{id}
func (h *Handlers) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var updates types.AppointmentUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	apt, err := h.service.UpdateAppointment(r.Context(), claims, id, &updates)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, apt)
}

// DeleteAppointment handles DELETE /appointments/{id}
func (h *Handlers) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteAppointment(r.Context(), claims, id); err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateSchedule handles POST /schedules
func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	var sched types.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	created, err := h.service.CreateSchedule(r.Context(), claims, &sched)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, created)
}

// GetSchedule handles GET /schedules/{id}
func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	sched, err := h.service.GetSchedule(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, sched)
}

// ListSchedules handles GET /schedules
func (h *Handlers) ListSchedules(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	schedules, err := h.service.ListSchedules(r.Context(), claims, r.URL.Query().Get("doctor_id"))
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	if schedules == nil {
		schedules = []*types.Schedule{}
	}

	h.writeJSONResponse(w, http.StatusOK, schedules)
}

// UpdateSchedule handles PATCH /schedules/{id}
func (h *Handlers) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var updates types.ScheduleUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	sched, err := h.service.UpdateSchedule(r.Context(), claims, id, &updates)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, sched)
}

// DeleteSchedule handles DELETE /schedules/{id}
func (h *Handlers) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteSchedule(r.Context(), claims, id); err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
