package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/keyvault/service"
	"github.com/quietwire/dmcore/internal/metrics"
)

// vaultUseCaseWithMetrics decorates VaultUseCase with metrics instrumentation.
type vaultUseCaseWithMetrics struct {
	next    VaultUseCase
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a VaultUseCase with metrics recording.
func NewVaultUseCaseWithMetrics(useCase VaultUseCase, m metrics.BusinessMetrics) VaultUseCase {
	return &vaultUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Provision records metrics for vault provisioning operations.
func (v *vaultUseCaseWithMetrics) Provision(
	ctx context.Context,
	userID uuid.UUID,
	passphrase string,
) (*ProvisionOutput, error) {
	start := time.Now()
	output, err := v.next.Provision(ctx, userID, passphrase)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "keyvault", "provision", status)
	v.metrics.RecordDuration(ctx, "keyvault", "provision", time.Since(start), status)

	return output, err
}

// Unlock records metrics for vault unlock operations.
func (v *vaultUseCaseWithMetrics) Unlock(
	ctx context.Context,
	userID uuid.UUID,
	passphrase string,
) (*service.Session, error) {
	start := time.Now()
	session, err := v.next.Unlock(ctx, userID, passphrase)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "keyvault", "unlock", status)
	v.metrics.RecordDuration(ctx, "keyvault", "unlock", time.Since(start), status)

	return session, err
}

// Lock records metrics for vault lock operations.
func (v *vaultUseCaseWithMetrics) Lock(ctx context.Context, userID uuid.UUID) error {
	start := time.Now()
	err := v.next.Lock(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "keyvault", "lock", status)
	v.metrics.RecordDuration(ctx, "keyvault", "lock", time.Since(start), status)

	return err
}

// Session passes through without recording; it is a local lookup.
func (v *vaultUseCaseWithMetrics) Session(userID uuid.UUID) (*service.Session, error) {
	return v.next.Session(userID)
}

// PublicKey passes through without recording; it is a simple read.
func (v *vaultUseCaseWithMetrics) PublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	return v.next.PublicKey(ctx, userID)
}

// recoveryUseCaseWithMetrics decorates RecoveryUseCase with metrics instrumentation.
type recoveryUseCaseWithMetrics struct {
	next    RecoveryUseCase
	metrics metrics.BusinessMetrics
}

// NewRecoveryUseCaseWithMetrics wraps a RecoveryUseCase with metrics recording.
func NewRecoveryUseCaseWithMetrics(useCase RecoveryUseCase, m metrics.BusinessMetrics) RecoveryUseCase {
	return &recoveryUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// IssueRecoveryCode records metrics for recovery code issue operations.
func (r *recoveryUseCaseWithMetrics) IssueRecoveryCode(ctx context.Context, userID uuid.UUID) (string, error) {
	start := time.Now()
	code, err := r.next.IssueRecoveryCode(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "keyvault", "recovery_issue", status)
	r.metrics.RecordDuration(ctx, "keyvault", "recovery_issue", time.Since(start), status)

	return code, err
}

// Redeem records metrics for recovery code redemption operations.
func (r *recoveryUseCaseWithMetrics) Redeem(
	ctx context.Context,
	userID uuid.UUID,
	code string,
	newPassphrase string,
) error {
	start := time.Now()
	err := r.next.Redeem(ctx, userID, code, newPassphrase)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "keyvault", "recovery_redeem", status)
	r.metrics.RecordDuration(ctx, "keyvault", "recovery_redeem", time.Since(start), status)

	return err
}
