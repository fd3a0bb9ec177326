// Package repository provides data persistence implementations for device sync entities.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/devicesync/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// PostgreSQLDeviceRepository handles device registration persistence for PostgreSQL
type PostgreSQLDeviceRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeviceRepository creates a new PostgreSQLDeviceRepository
func NewPostgreSQLDeviceRepository(db *sql.DB) *PostgreSQLDeviceRepository {
	return &PostgreSQLDeviceRepository{
		db: db,
	}
}

// Create inserts a device registration. Registering the same fingerprint
// twice for a user is a no-op.
func (r *PostgreSQLDeviceRepository) Create(ctx context.Context, device *domain.DeviceRegistration) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO device_registrations (id, user_id, fingerprint, device_type, registered_at)
			  VALUES ($1, $2, $3, $4, NOW())
			  ON CONFLICT (user_id, fingerprint) DO NOTHING`

	_, err := querier.ExecContext(ctx, query, device.ID, device.UserID, device.Fingerprint, device.DeviceType)
	if err != nil {
		return apperrors.Wrap(err, "failed to create device registration")
	}
	return nil
}

// Exists reports whether the user already verified this fingerprint
func (r *PostgreSQLDeviceRepository) Exists(ctx context.Context, userID uuid.UUID, fingerprint string) (bool, error) {
	var exists bool
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS(SELECT 1 FROM device_registrations WHERE user_id = $1 AND fingerprint = $2)`

	err := querier.QueryRowContext(ctx, query, userID, fingerprint).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check device registration")
	}
	return exists, nil
}

// ListByUser retrieves the user's registered devices, newest first
func (r *PostgreSQLDeviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.DeviceRegistration, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_id, fingerprint, device_type, registered_at
			  FROM device_registrations WHERE user_id = $1
			  ORDER BY registered_at DESC, id DESC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list device registrations")
	}
	defer func() { _ = rows.Close() }()

	var devices []*domain.DeviceRegistration
	for rows.Next() {
		var device domain.DeviceRegistration
		err := rows.Scan(&device.ID, &device.UserID, &device.Fingerprint, &device.DeviceType, &device.RegisteredAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan device registration")
		}
		devices = append(devices, &device)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate device registrations")
	}

	return devices, nil
}
