package files

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Handlers provides HTTP handlers for file operations
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates new file handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers file routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/medical-files/upload", h.Upload).Methods("POST")
	router.HandleFunc("/medical-files/{id}", h.GetFile).Methods("GET")
	router.HandleFunc("/medical-files/{id}", h.DeleteFile).Methods("DELETE")
	router.HandleFunc("/medical-files/{id}/download", h.Download).Methods("GET")
	router.HandleFunc("/records/{id}/files", h.ListFiles).Methods("GET")
}

// Upload handles POST /medical-files/upload as multipart form data
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	// one extra byte so oversized uploads are detected, not truncated
	r.Body = http.MaxBytesReader(w, r.Body, h.service.config.MaxUploadBytes+1)

	if err := r.ParseMultipartForm(h.service.config.MaxUploadBytes); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid multipart request."))
		return
	}

	upload, header, err := r.FormFile("file")
	if err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "A file part named 'file' is required."))
		return
	}
	defer upload.Close()

	isPrivate, _ := strconv.ParseBool(r.FormValue("is_private"))

	file, err := h.service.Upload(r.Context(), claims, &UploadRequest{
		RecordID:    r.FormValue("record"),
		FileName:    header.Filename,
		Size:        header.Size,
		Description: r.FormValue("description"),
		IsPrivate:   isPrivate,
		Content:     upload,
	})
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, file)
}

// GetFile handles GET /medical-files/{id} returning metadata only
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	file, err := h.service.GetFile(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, file)
}

// Download handles GET /medical-files/{id}/download streaming the bytes
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	file, content, err := h.service.Download(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))

	if _, err := io.Copy(w, content); err != nil {
		h.logger.WithError(err).WithField("file_id", id).Warn("File download interrupted")
	}
}

// ListFiles handles GET /records/{id}/files
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	recordID := mux.Vars(r)["id"]

	files, err := h.service.ListFiles(r.Context(), claims, recordID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	if files == nil {
		files = []*types.MedicalFile{}
	}

	h.writeJSONResponse(w, http.StatusOK, files)
}

// DeleteFile handles DELETE /medical-files/{id}
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteFile(r.Context(), claims, id); err != nil {
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
