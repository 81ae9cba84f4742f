package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/services"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, email, name, password, ip string) (*models.User, error)
	Login(ctx context.Context, email, password, ip string) (*services.LoginResult, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service    AuthServiceInterface
	ipResolver *pkghttp.ClientIPResolver
}

func NewAuthHandler(service AuthServiceInterface, ipResolver *pkghttp.ClientIPResolver) *AuthHandler {
	return &AuthHandler{
		service:    service,
		ipResolver: ipResolver,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// LoginResponse carries the user summary and a bearer token.
type LoginResponse struct {
	Message   string             `json:"message"`
	User      models.UserSummary `json:"user"`
	Token     string             `json:"token"`
	ExpiresIn int64              `json:"expires_in"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password, h.ipResolver.ClientIP(r))
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "User already exists")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusCreated, "User registered successfully")
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password, h.ipResolver.ClientIP(r))
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Message:   "Login successful",
		User:      res.User.Summary(),
		Token:     res.Token,
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
	})
}
