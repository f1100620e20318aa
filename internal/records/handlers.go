package records

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Handlers provides HTTP handlers for medical record operations
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates new record handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers medical record routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/records", h.CreateRecord).Methods("POST")
	router.HandleFunc("/records", h.ListRecords).Methods("GET")
	router.HandleFunc("/records/{id}", h.GetRecord).Methods("GET")
	router.HandleFunc("/records/{id}", h.UpdateRecord).Methods("PUT", "PATCH")
	router.HandleFunc("/records/{id}", h.DeleteRecord).Methods("DELETE")
	router.HandleFunc("/records/{id}/prescriptions", h.CreatePrescription).Methods("POST")
	router.HandleFunc("/records/{id}/prescriptions", h.ListPrescriptions).Methods("GET")

	router.HandleFunc("/prescriptions/{id}", h.GetPrescription).Methods("GET")
	router.HandleFunc("/prescriptions/{id}", h.DeletePrescription).Methods("DELETE")
}

// CreateRecord handles POST /records
func (h *Handlers) CreateRecord(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	var record types.MedicalRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	created, err := h.service.CreateRecord(r.Context(), claims, &record)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, created)
}

// GetRecord handles GET /records/{id}
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	record, err := h.service.GetRecord(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, record)
}

// ListRecords handles GET /records
func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	records, err := h.service.ListRecords(r.Context(), claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	if records == nil {
		records = []*types.MedicalRecord{}
	}

	h.writeJSONResponse(w, http.StatusOK, records)
}

// UpdateRecord handles PUT /records/{id}
func (h *Handlers) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var updates types.RecordUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	record, err := h.service.UpdateRecord(r.Context(), claims, id, &updates)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, record)
}

// DeleteRecord handles DELETE /records/{id}
func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteRecord(r.Context(), claims, id); err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreatePrescription handles POST /records/{id}/prescriptions
func (h *Handlers) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	var p types.Prescription
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}
	p.RecordID = mux.Vars(r)["id"]

	created, err := h.service.CreatePrescription(r.Context(), claims, &p)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, created)
}

// GetPrescription handles GET /prescriptions/{id}
func (h *Handlers) GetPrescription(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	p, err := h.service.GetPrescription(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, p)
}

// ListPrescriptions handles GET /records/{id}/prescriptions
func (h *Handlers) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	recordID := mux.Vars(r)["id"]

	prescriptions, err := h.service.ListPrescriptions(r.Context(), claims, recordID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	if prescriptions == nil {
		prescriptions = []*types.Prescription{}
	}

	h.writeJSONResponse(w, http.StatusOK, prescriptions)
}

// DeletePrescription handles DELETE /prescriptions/{id}
func (h *Handlers) DeletePrescription(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.service.DeletePrescription(r.Context(), claims, id); err != nil {
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
