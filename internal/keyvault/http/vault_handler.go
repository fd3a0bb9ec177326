// Package http provides HTTP handlers for key vault operations.
package http

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quietwire/dmcore/internal/httputil"
	"github.com/quietwire/dmcore/internal/keyvault/http/dto"
	keyvaultUseCase "github.com/quietwire/dmcore/internal/keyvault/usecase"
)

// VaultHandler handles HTTP requests for vault and recovery operations.
type VaultHandler struct {
	vaultUseCase    keyvaultUseCase.VaultUseCase
	recoveryUseCase keyvaultUseCase.RecoveryUseCase
	logger          *slog.Logger
}

// NewVaultHandler creates a new vault handler with required dependencies.
func NewVaultHandler(
	vaultUseCase keyvaultUseCase.VaultUseCase,
	recoveryUseCase keyvaultUseCase.RecoveryUseCase,
	logger *slog.Logger,
) *VaultHandler {
	return &VaultHandler{
		vaultUseCase:    vaultUseCase,
		recoveryUseCase: recoveryUseCase,
		logger:          logger,
	}
}

// RegisterRoutes mounts the vault endpoints.
func (h *VaultHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/vault/provision", h.ProvisionHandler)
	r.POST("/vault/unlock", h.UnlockHandler)
	r.POST("/vault/lock", h.LockHandler)
	r.GET("/vault/public-key", h.PublicKeyHandler)
	r.POST("/vault/recovery", h.IssueRecoveryCodeHandler)
	r.POST("/vault/recovery/redeem", h.RedeemRecoveryCodeHandler)
}

// ProvisionHandler generates key material for the calling user.
// POST /v1/vault/provision
// Returns 201 Created with the public key and the one-time recovery code.
func (h *VaultHandler) ProvisionHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	output, err := h.vaultUseCase.Provision(c.Request.Context(), userID, req.Passphrase)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProvisionResponse(output))
}

// UnlockHandler unlocks the calling user's vault session.
// POST /v1/vault/unlock
// Returns 200 OK on success; unlock failures are deliberately generic.
func (h *VaultHandler) UnlockHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if _, err := h.vaultUseCase.Unlock(c.Request.Context(), userID, req.Passphrase); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.VaultStatusResponse{Status: "unlocked"})
}

// LockHandler locks the calling user's vault session.
// POST /v1/vault/lock
// Returns 200 OK; locking an already-locked vault succeeds.
func (h *VaultHandler) LockHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.vaultUseCase.Lock(c.Request.Context(), userID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.VaultStatusResponse{Status: "locked"})
}

// PublicKeyHandler returns the calling user's public key.
// GET /v1/vault/public-key
func (h *VaultHandler) PublicKeyHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	publicKey, err := h.vaultUseCase.PublicKey(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.PublicKeyResponse{
		PublicKey: base64.StdEncoding.EncodeToString(publicKey),
	})
}

// IssueRecoveryCodeHandler replaces the user's recovery code.
// POST /v1/vault/recovery
// Requires an unlocked vault. Returns 201 Created with the new plain code.
func (h *VaultHandler) IssueRecoveryCodeHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	code, err := h.recoveryUseCase.IssueRecoveryCode(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.RecoveryCodeResponse{RecoveryCode: code})
}

// RedeemRecoveryCodeHandler exchanges a recovery code for a new passphrase.
// POST /v1/vault/recovery/redeem
// Returns 200 OK; invalid code responses reveal nothing about the cause.
func (h *VaultHandler) RedeemRecoveryCodeHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.RedeemRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	err = h.recoveryUseCase.Redeem(c.Request.Context(), userID, req.RecoveryCode, req.NewPassphrase)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.VaultStatusResponse{Status: "passphrase_updated"})
}
