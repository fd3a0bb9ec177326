// Package repository provides data persistence implementations for key vault entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/keyvault/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// PostgreSQLUserKeyRepository handles user key persistence for PostgreSQL
type PostgreSQLUserKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserKeyRepository creates a new PostgreSQLUserKeyRepository
func NewPostgreSQLUserKeyRepository(db *sql.DB) *PostgreSQLUserKeyRepository {
	return &PostgreSQLUserKeyRepository{
		db: db,
	}
}

// Create inserts a new user key row
func (r *PostgreSQLUserKeyRepository) Create(ctx context.Context, userKey *domain.UserKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO user_keys (user_id, public_key, recovery_code_hash, created_at, updated_at)
			  VALUES ($1, $2, $3, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, userKey.UserID, userKey.PublicKey, userKey.RecoveryCodeHash)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrAlreadyProvisioned
		}
		return apperrors.Wrap(err, "failed to create user key")
	}
	return nil
}

// GetByUserID retrieves a user key by user ID
func (r *PostgreSQLUserKeyRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserKey, error) {
	var userKey domain.UserKey
	querier := database.GetTx(ctx, r.db)

	query := `SELECT user_id, public_key, recovery_code_hash, created_at, updated_at
			  FROM user_keys WHERE user_id = $1`

	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&userKey.UserID, &userKey.PublicKey, &userKey.RecoveryCodeHash, &userKey.CreatedAt, &userKey.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotProvisioned
		}
		return nil, apperrors.Wrap(err, "failed to get user key by user id")
	}

	return &userKey, nil
}

// UpdateRecoveryCodeHash replaces the stored recovery code hash
func (r *PostgreSQLUserKeyRepository) UpdateRecoveryCodeHash(ctx context.Context, userID uuid.UUID, recoveryCodeHash string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE user_keys SET recovery_code_hash = $2, updated_at = NOW() WHERE user_id = $1`

	result, err := querier.ExecContext(ctx, query, userID, recoveryCodeHash)
	if err != nil {
		return apperrors.Wrap(err, "failed to update recovery code hash")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return domain.ErrNotProvisioned
	}
	return nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
