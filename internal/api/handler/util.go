package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradehaven/wallet-api/internal/api/middleware"
	"github.com/tradehaven/wallet-api/internal/api/respond"
	"github.com/tradehaven/wallet-api/internal/models"
)

var validate = validator.New()

func requestActor(r *http.Request) (uuid.UUID, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, false, errors.New("missing user in auth context")
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid user_id in auth context")
	}

	return actorID, middleware.UserRoleFromContext(r.Context()) == "admin", nil
}

// respondServiceError maps the ledger error taxonomy onto HTTP responses.
// Unclassified storage failures become a generic 500 with no internals.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, models.ErrInvalidAmount):
		respond.Error(w, r, http.StatusBadRequest, "ledger/invalid-amount", "Invalid amount")
	case errors.Is(err, models.ErrInsufficientFunds):
		respond.Error(w, r, http.StatusBadRequest, "ledger/insufficient-funds", "Insufficient funds")
	case errors.Is(err, models.ErrRecipientNotFound):
		respond.Error(w, r, http.StatusNotFound, "ledger/recipient-not-found", "Recipient not found")
	case errors.Is(err, models.ErrSelfTransfer):
		respond.Error(w, r, http.StatusBadRequest, "ledger/self-transfer", "Cannot transfer to your own account")
	case errors.Is(err, models.ErrValidationFailed):
		respond.Error(w, r, http.StatusBadRequest, "request/validation-failed", "Missing or invalid required field")
	case errors.Is(err, models.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, "resource/not-found", "Not found")
	case errors.Is(err, models.ErrUnauthorized):
		respond.Error(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
	case errors.Is(err, models.ErrEmailTaken):
		respond.Error(w, r, http.StatusConflict, "auth/email-taken", "Email is already registered")
	case errors.Is(err, models.ErrInvalidLogin):
		respond.Error(w, r, http.StatusUnauthorized, "auth/invalid-credentials", "Invalid email or password")
	case errors.Is(err, models.ErrPlatformRejected):
		respond.Error(w, r, http.StatusBadGateway, "platform/rejected", "Platform rejected the transfer")
	default:
		return false
	}
	return true
}

func mapDBError(err error) (status int, code, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
