package dto

import (
	"encoding/base64"

	"github.com/quietwire/dmcore/internal/keyvault/usecase"
)

// ProvisionResponse represents the API response for vault provisioning.
// The recovery code appears here and nowhere else.
type ProvisionResponse struct {
	PublicKey    string `json:"public_key"`
	RecoveryCode string `json:"recovery_code"`
}

// ToProvisionResponse converts a provision output to its API representation.
func ToProvisionResponse(output *usecase.ProvisionOutput) ProvisionResponse {
	return ProvisionResponse{
		PublicKey:    base64.StdEncoding.EncodeToString(output.PublicKey),
		RecoveryCode: output.RecoveryCode,
	}
}

// VaultStatusResponse represents the API response for vault state changes.
type VaultStatusResponse struct {
	Status string `json:"status"`
}

// RecoveryCodeResponse represents the API response for recovery code reissue.
type RecoveryCodeResponse struct {
	RecoveryCode string `json:"recovery_code"`
}

// PublicKeyResponse represents the API response for a user's public key.
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}
