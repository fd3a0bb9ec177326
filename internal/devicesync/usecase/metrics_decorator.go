package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/devicesync/domain"
	"github.com/quietwire/dmcore/internal/metrics"
)

// syncUseCaseWithMetrics decorates SyncUseCase with metrics instrumentation.
type syncUseCaseWithMetrics struct {
	next    SyncUseCase
	metrics metrics.BusinessMetrics
}

// NewSyncUseCaseWithMetrics wraps a SyncUseCase with metrics recording.
func NewSyncUseCaseWithMetrics(useCase SyncUseCase, m metrics.BusinessMetrics) SyncUseCase {
	return &syncUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// RequestSync records metrics for sync request operations.
func (s *syncUseCaseWithMetrics) RequestSync(
	ctx context.Context,
	userID uuid.UUID,
	passphrase, fingerprint, deviceType string,
) (*SyncResult, error) {
	start := time.Now()
	result, err := s.next.RequestSync(ctx, userID, passphrase, fingerprint, deviceType)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "devicesync", "sync_request", status)
	s.metrics.RecordDuration(ctx, "devicesync", "sync_request", time.Since(start), status)

	return result, err
}

// ConfirmVerification records metrics for verification confirmations.
func (s *syncUseCaseWithMetrics) ConfirmVerification(ctx context.Context, challengeID uuid.UUID, code string) error {
	start := time.Now()
	err := s.next.ConfirmVerification(ctx, challengeID, code)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "devicesync", "sync_confirm", status)
	s.metrics.RecordDuration(ctx, "devicesync", "sync_confirm", time.Since(start), status)

	return err
}

// ListDevices passes through without recording.
func (s *syncUseCaseWithMetrics) ListDevices(ctx context.Context, userID uuid.UUID) ([]*domain.DeviceRegistration, error) {
	return s.next.ListDevices(ctx, userID)
}
