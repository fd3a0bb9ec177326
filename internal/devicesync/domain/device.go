// Package domain contains the device synchronization entities.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeviceRegistration records a device that completed verification and may
// unlock the user's vault without a new challenge.
type DeviceRegistration struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Fingerprint  string    `json:"fingerprint"`
	DeviceType   string    `json:"device_type"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Challenge is a pending device verification. It lives in the challenge
// store only; the plain code is delivered out of band and never kept.
type Challenge struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Fingerprint string    `json:"fingerprint"`
	DeviceType  string    `json:"device_type"`
	CodeHash    string    `json:"code_hash"`
	CreatedAt   time.Time `json:"created_at"`
}
