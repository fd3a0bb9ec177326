package dto

import (
	"time"

	"github.com/quietwire/dmcore/internal/devicesync/domain"
	"github.com/quietwire/dmcore/internal/devicesync/usecase"
)

// SyncResponse represents the API response for a sync request. A pending
// verification carries the challenge id the device must confirm.
type SyncResponse struct {
	Verified    bool   `json:"verified"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

// MapSyncResultToResponse converts a sync result to its API representation.
func MapSyncResultToResponse(result *usecase.SyncResult) SyncResponse {
	response := SyncResponse{Verified: result.Verified}
	if !result.Verified {
		response.ChallengeID = result.ChallengeID.String()
	}
	return response
}

// DeviceResponse represents a registered device in API responses.
type DeviceResponse struct {
	ID           string    `json:"id"`
	Fingerprint  string    `json:"fingerprint"`
	DeviceType   string    `json:"device_type"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ListDevicesResponse represents the user's registered devices.
type ListDevicesResponse struct {
	Data []DeviceResponse `json:"data"`
}

// MapDevicesToListResponse converts domain devices to a list API response.
func MapDevicesToListResponse(devices []*domain.DeviceRegistration) ListDevicesResponse {
	responses := make([]DeviceResponse, 0, len(devices))
	for _, device := range devices {
		responses = append(responses, DeviceResponse{
			ID:           device.ID.String(),
			Fingerprint:  device.Fingerprint,
			DeviceType:   device.DeviceType,
			RegisteredAt: device.RegisteredAt,
		})
	}
	return ListDevicesResponse{
		Data: responses,
	}
}
