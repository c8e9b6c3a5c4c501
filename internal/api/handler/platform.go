package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tradehaven/wallet-api/internal/api/respond"
	"github.com/tradehaven/wallet-api/internal/domain"
	"github.com/tradehaven/wallet-api/internal/platform"
)

// PlatformHandler surfaces the mocked MT4/MT5 collaborator for the
// dashboard's platform panels.
type PlatformHandler struct {
	platform platform.Platform
}

func NewPlatformHandler(p platform.Platform) *PlatformHandler {
	return &PlatformHandler{platform: p}
}

func (h *PlatformHandler) GetAccountDetails(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		respond.Error(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	platformName := r.URL.Query().Get("platform")
	if platformName == "" {
		platformName = domain.PlatformMT4
	}
	if !domain.ValidPlatform(platformName) {
		respond.Error(w, r, http.StatusBadRequest, "platform/invalid", "platform must be MT4 or MT5")
		return
	}

	details, err := h.platform.GetAccountDetails(r.Context(), actorID.String(), platformName)
	if err != nil {
		zap.L().Error("platform account lookup failed", zap.Error(err), zap.String("platform", platformName))
		respond.Error(w, r, http.StatusBadGateway, "platform/unavailable", "Platform unavailable")
		return
	}

	respond.JSON(w, http.StatusOK, details)
}

func (h *PlatformHandler) GetServerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.platform.GetServerStatus(r.Context())
	if err != nil {
		zap.L().Error("platform status check failed", zap.Error(err))
		respond.Error(w, r, http.StatusBadGateway, "platform/unavailable", "Platform unavailable")
		return
	}
	respond.JSON(w, http.StatusOK, status)
}
