// Package dto provides data transfer objects for the key vault HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/quietwire/dmcore/internal/validation"
)

// ProvisionRequest represents the API request for provisioning encryption.
type ProvisionRequest struct {
	Passphrase string `json:"passphrase"`
}

// Validate checks if the provision request is valid.
func (r *ProvisionRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Passphrase,
			validation.Required.Error("passphrase is required"),
			validation.Length(8, 128).Error("passphrase must be between 8 and 128 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// UnlockRequest represents the API request for unlocking the vault.
type UnlockRequest struct {
	Passphrase string `json:"passphrase"`
}

// Validate checks if the unlock request is valid.
func (r *UnlockRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Passphrase,
			validation.Required.Error("passphrase is required"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// RedeemRecoveryRequest represents the API request for redeeming a recovery code.
type RedeemRecoveryRequest struct {
	RecoveryCode  string `json:"recovery_code"`
	NewPassphrase string `json:"new_passphrase"`
}

// Validate checks if the redeem request is valid.
func (r *RedeemRecoveryRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.RecoveryCode,
			validation.Required.Error("recovery_code is required"),
			appValidation.NotBlank,
		),
		validation.Field(&r.NewPassphrase,
			validation.Required.Error("new_passphrase is required"),
			validation.Length(8, 128).Error("new_passphrase must be between 8 and 128 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}
