package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/griebenowschalk/manga-tracker/internal/service"
	"github.com/griebenowschalk/manga-tracker/pkg/middleware"
	"github.com/griebenowschalk/manga-tracker/pkg/pagination"
	"github.com/griebenowschalk/manga-tracker/pkg/validator"
)

// UserHandler handles HTTP requests for the admin user management endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new admin user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateUserRequest is the JSON request body for an admin creating a user.
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Role        string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// UpdateUserRequest is the JSON request body for an admin updating a user.
type UpdateUserRequest struct {
	Email       *string        `json:"email" validate:"omitempty,email"`
	DisplayName *string        `json:"display_name" validate:"omitempty,min=1,max=100"`
	Password    *string        `json:"password" validate:"omitempty,min=8"`
	Role        *string        `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	Preferences map[string]any `json:"preferences"`
}

// --- Handlers ---

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	result, err := h.service.List(r.Context(), params)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, result)
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, user.View())
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.service.Create(r.Context(), service.AdminCreateInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusCreated, user.View())
}

// Update handles PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	actorID := middleware.UserIDFromContext(r.Context())
	user, err := h.service.Update(r.Context(), actorID, chi.URLParam(r, "id"), service.AdminUpdateInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        req.Role,
		Preferences: req.Preferences,
	})
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, user.View())
}

// Delete handles DELETE /api/v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.UserIDFromContext(r.Context())

	if err := h.service.Delete(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeMessage(w, http.StatusOK, "user deleted")
}
