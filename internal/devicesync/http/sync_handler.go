// Package http provides HTTP handlers for device synchronization.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/devicesync/http/dto"
	devicesyncUseCase "github.com/quietwire/dmcore/internal/devicesync/usecase"
	"github.com/quietwire/dmcore/internal/httputil"
)

// SyncHandler handles HTTP requests for device synchronization.
type SyncHandler struct {
	syncUseCase devicesyncUseCase.SyncUseCase
	logger      *slog.Logger
}

// NewSyncHandler creates a new sync handler with required dependencies.
func NewSyncHandler(syncUseCase devicesyncUseCase.SyncUseCase, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		syncUseCase: syncUseCase,
		logger:      logger,
	}
}

// RegisterRoutes mounts the device sync endpoints.
func (h *SyncHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/sync/request", h.RequestSyncHandler)
	r.POST("/sync/confirm", h.ConfirmVerificationHandler)
	r.GET("/sync/devices", h.ListDevicesHandler)
}

// RequestSyncHandler starts a vault sync for the calling device.
// POST /v1/sync/request
// Returns 200 OK when the device is already verified and the vault unlocked,
// or 202 Accepted with a challenge id when verification is required.
func (h *SyncHandler) RequestSyncHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.RequestSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	result, err := h.syncUseCase.RequestSync(c.Request.Context(), userID, req.Passphrase, req.Fingerprint, req.DeviceType)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	statusCode := http.StatusOK
	if !result.Verified {
		statusCode = http.StatusAccepted
	}
	c.JSON(statusCode, dto.MapSyncResultToResponse(result))
}

// ConfirmVerificationHandler redeems a verification code for a challenge.
// POST /v1/sync/confirm
// Returns 200 OK once the device is registered.
func (h *SyncHandler) ConfirmVerificationHandler(c *gin.Context) {
	if _, err := httputil.CurrentUserID(c); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.ConfirmVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid challenge_id format: must be a valid UUID"),
			h.logger)
		return
	}

	if err := h.syncUseCase.ConfirmVerification(c.Request.Context(), challengeID, req.Code); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

// ListDevicesHandler returns the calling user's registered devices.
// GET /v1/sync/devices
func (h *SyncHandler) ListDevicesHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	devices, err := h.syncUseCase.ListDevices(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDevicesToListResponse(devices))
}
