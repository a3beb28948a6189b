package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/griebenowschalk/manga-tracker/internal/domain"
	"github.com/griebenowschalk/manga-tracker/internal/service"
	"github.com/griebenowschalk/manga-tracker/pkg/middleware"
	"github.com/griebenowschalk/manga-tracker/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	cookies CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the JSON request body for token refresh. Optional; the
// mt_refresh cookie is the primary transport.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest is the JSON request body for forgot password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the JSON request body for password reset.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// UpdatePasswordRequest is the JSON request body for changing the password.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// UpdateDetailsRequest is the JSON request body for profile updates.
type UpdateDetailsRequest struct {
	Email       *string        `json:"email" validate:"omitempty,email"`
	DisplayName *string        `json:"display_name" validate:"omitempty,min=1,max=100"`
	Preferences map[string]any `json:"preferences"`
}

// --- Response types ---

// SessionResponse wraps the user view with the issued tokens. Tokens are
// duplicated in the body for clients that cannot use cookies.
type SessionResponse struct {
	User   domain.UserView   `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, tokens, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	setSessionCookies(w, tokens, h.cookies)
	writeData(w, http.StatusCreated, SessionResponse{User: user.View(), Tokens: tokens})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, tokens, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	setSessionCookies(w, tokens, h.cookies)
	writeData(w, http.StatusOK, SessionResponse{User: user.View(), Tokens: tokens})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := refreshTokenFromRequest(r)

	user, tokens, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		clearSessionCookies(w, h.cookies)
		writeAppError(w, r, err, h.logger)
		return
	}

	setSessionCookies(w, tokens, h.cookies)
	writeData(w, http.StatusOK, SessionResponse{User: user.View(), Tokens: tokens})
}

// Logout handles POST /api/v1/auth/logout. Always succeeds so clients can
// recover from a half-broken session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), refreshTokenFromRequest(r)); err != nil {
		h.logger.ErrorContext(r.Context(), "logout failed",
			slog.String("error", err.Error()),
		)
	}

	clearSessionCookies(w, h.cookies)
	writeMessage(w, http.StatusOK, "logged out")
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, user.View())
}

// UpdateDetails handles PUT /api/v1/auth/update-details
func (h *AuthHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req UpdateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	user, err := h.service.UpdateDetails(r.Context(), userID, service.UpdateDetailsInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Preferences: req.Preferences,
	})
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, user.View())
}

// UpdatePassword handles PUT /api/v1/auth/update-password
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	tokens, err := h.service.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	setSessionCookies(w, tokens, h.cookies)
	writeMessage(w, http.StatusOK, "password updated")
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeMessage(w, http.StatusOK, "email sent")
}

// ResetPassword handles PUT /api/v1/auth/reset-password/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, tokens, err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	setSessionCookies(w, tokens, h.cookies)
	writeData(w, http.StatusOK, SessionResponse{User: user.View(), Tokens: tokens})
}

// refreshTokenFromRequest reads the refresh token from the scoped cookie,
// falling back to the JSON body for cookieless clients.
func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	var req RefreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(&req)
	}
	return req.RefreshToken
}
