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

// MySQLUserKeyRepository handles user key persistence for MySQL
type MySQLUserKeyRepository struct {
	db *sql.DB
}

// NewMySQLUserKeyRepository creates a new MySQLUserKeyRepository
func NewMySQLUserKeyRepository(db *sql.DB) *MySQLUserKeyRepository {
	return &MySQLUserKeyRepository{
		db: db,
	}
}

// Create inserts a new user key row
func (r *MySQLUserKeyRepository) Create(ctx context.Context, userKey *domain.UserKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO user_keys (user_id, public_key, recovery_code_hash, created_at, updated_at)
			  VALUES (?, ?, ?, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, userKey.UserID, userKey.PublicKey, userKey.RecoveryCodeHash)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return domain.ErrAlreadyProvisioned
		}
		return apperrors.Wrap(err, "failed to create user key")
	}
	return nil
}

// GetByUserID retrieves a user key by user ID
func (r *MySQLUserKeyRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserKey, error) {
	var userKey domain.UserKey
	querier := database.GetTx(ctx, r.db)

	query := `SELECT user_id, public_key, recovery_code_hash, created_at, updated_at
			  FROM user_keys WHERE user_id = ?`

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
func (r *MySQLUserKeyRepository) UpdateRecoveryCodeHash(ctx context.Context, userID uuid.UUID, recoveryCodeHash string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE user_keys SET recovery_code_hash = ?, updated_at = NOW() WHERE user_id = ?`

	result, err := querier.ExecContext(ctx, query, recoveryCodeHash, userID)
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

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
