package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/tradehaven/wallet-api/internal/api/middleware"
	"github.com/tradehaven/wallet-api/internal/api/respond"
	"github.com/tradehaven/wallet-api/internal/models"
	"github.com/tradehaven/wallet-api/internal/service"
)

type AuthHandler struct {
	svc *service.AccountService
}

func NewAuthHandler(svc *service.AccountService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authView struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/validation-failed", "Name, valid email and a password of at least 8 characters are required")
		return
	}

	user, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if respondServiceError(w, r, err) {
			return
		}
		if status, code, msg, ok := mapDBError(err); ok {
			respond.Error(w, r, status, code, msg)
			return
		}
		zap.L().Error("register failed", zap.Error(err), zap.String("email", req.Email))
		respond.Error(w, r, http.StatusInternalServerError, "auth/register-failed", "Failed to register")
		return
	}

	token, err := signToken(user)
	if err != nil {
		zap.L().Error("sign token failed", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "auth/token-failed", "Failed to sign token")
		return
	}

	respond.JSON(w, http.StatusCreated, authView{Token: token, User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/validation-failed", "Email and password are required")
		return
	}

	user, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if respondServiceError(w, r, err) {
			return
		}
		zap.L().Error("login failed", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "auth/login-failed", "Failed to log in")
		return
	}

	token, err := signToken(user)
	if err != nil {
		zap.L().Error("sign token failed", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "auth/token-failed", "Failed to sign token")
		return
	}

	respond.JSON(w, http.StatusOK, authView{Token: token, User: user})
}

func signToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"sub":     user.ID.String(),
		"iss":     middleware.JWTIssuer(),
		"aud":     middleware.JWTAudience(),
		"iat":     now.Unix(),
		"nbf":     now.Add(-30 * time.Second).Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(middleware.JWTSecret())
}
