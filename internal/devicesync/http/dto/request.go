// Package dto provides data transfer objects for the device sync HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/quietwire/dmcore/internal/validation"
)

// RequestSyncRequest represents the API request for syncing a device.
type RequestSyncRequest struct {
	Passphrase  string `json:"passphrase"`
	Fingerprint string `json:"fingerprint"`
	DeviceType  string `json:"device_type"`
}

// Validate checks if the sync request is valid.
func (r *RequestSyncRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Passphrase,
			validation.Required.Error("passphrase is required"),
		),
		validation.Field(&r.Fingerprint,
			validation.Required.Error("fingerprint is required"),
			appValidation.NotBlank,
			appValidation.NoWhitespace,
		),
		validation.Field(&r.DeviceType,
			validation.Required.Error("device_type is required"),
			validation.In("desktop", "mobile", "web").Error("device_type must be desktop, mobile or web"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// ConfirmVerificationRequest represents the API request for confirming a
// device verification challenge.
type ConfirmVerificationRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

// Validate checks if the confirm request is valid.
func (r *ConfirmVerificationRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.ChallengeID,
			validation.Required.Error("challenge_id is required"),
		),
		validation.Field(&r.Code,
			validation.Required.Error("code is required"),
			validation.Length(6, 6).Error("code must be 6 digits"),
		),
	)
	return appValidation.WrapValidationError(err)
}
