package accounts

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Handlers provides HTTP handlers for account operations
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates new account handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers account routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.Register).Methods("POST")
	router.HandleFunc("/auth/login", h.Login).Methods("POST")
	router.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")

	router.HandleFunc("/users", h.ListUsers).Methods("GET")
	router.HandleFunc("/users/me", h.GetCurrentUser).Methods("GET")
	router.HandleFunc("/users/{id}", h.GetUser).Methods("GET")
	router.HandleFunc("/users/{id}", h.UpdateUser).Methods("PUT", "PATCH")
	router.HandleFunc("/users/{id}", h.DeactivateUser).Methods("DELETE")
	router.HandleFunc("/users/{id}/profile", h.GetProfile).Methods("GET")
	router.HandleFunc("/users/{id}/profile", h.UpdateProfile).Methods("PUT")
}

// Register handles POST /auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	token, user, err := h.service.Authenticate(r.Context(), &creds)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"token_type":    token.TokenType,
		"expires_in":    token.ExpiresIn,
		"user":          user,
	})
}

// Refresh handles POST /auth/refresh
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "refresh_token is required."))
		return
	}

	token, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, token)
}

// GetCurrentUser handles GET /users/me
func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required."))
		return
	}

	user, err := h.service.GetUser(r.Context(), claims, claims.UserID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, user)
}

// GetUser handles GET /users/{id}
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	user, err := h.service.GetUser(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, user)
}

// ListUsers handles GET /users
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())

	users, err := h.service.ListUsers(r.Context(), claims, types.UserRole(r.URL.Query().Get("role")))
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	if users == nil {
		users = []*types.User{}
	}

	h.writeJSONResponse(w, http.StatusOK, users)
}

// UpdateUser handles PATCH /users/{id}
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var updates types.UserUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	user, err := h.service.UpdateUser(r.Context(), claims, id, &updates)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, user)
}

// DeactivateUser handles DELETE /users/{id}
func (h *Handlers) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.service.DeactivateUser(r.Context(), claims, id); err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /users/{id}/profile
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	profile, err := h.service.GetProfile(r.Context(), claims, id)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /users/{id}/profile
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := types.ClaimsFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var profile types.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body."))
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), claims, id, &profile)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, updated)
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
