package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/keyvault/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// MySQLWrappedKeyRepository handles wrapped key persistence for MySQL
type MySQLWrappedKeyRepository struct {
	db *sql.DB
}

// NewMySQLWrappedKeyRepository creates a new MySQLWrappedKeyRepository
func NewMySQLWrappedKeyRepository(db *sql.DB) *MySQLWrappedKeyRepository {
	return &MySQLWrappedKeyRepository{
		db: db,
	}
}

// Upsert inserts a wrapped key, replacing any existing wrap for the same
// user and method. A user holds at most one wrap per method.
func (r *MySQLWrappedKeyRepository) Upsert(ctx context.Context, wrappedKey *domain.WrappedKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO wrapped_keys (id, user_id, method, ciphertext, nonce, salt, kdf_time, kdf_memory, kdf_threads, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
			  ON DUPLICATE KEY UPDATE
			      id = VALUES(id),
			      ciphertext = VALUES(ciphertext),
			      nonce = VALUES(nonce),
			      salt = VALUES(salt),
			      kdf_time = VALUES(kdf_time),
			      kdf_memory = VALUES(kdf_memory),
			      kdf_threads = VALUES(kdf_threads),
			      updated_at = NOW()`

	_, err := querier.ExecContext(ctx, query,
		wrappedKey.ID,
		wrappedKey.UserID,
		wrappedKey.Method,
		wrappedKey.Ciphertext,
		wrappedKey.Nonce,
		wrappedKey.Salt,
		wrappedKey.KDFTime,
		wrappedKey.KDFMemory,
		wrappedKey.KDFThreads,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert wrapped key")
	}
	return nil
}

// GetByUserAndMethod retrieves the wrapped key for a user and wrap method
func (r *MySQLWrappedKeyRepository) GetByUserAndMethod(ctx context.Context, userID uuid.UUID, method domain.WrapMethod) (*domain.WrappedKey, error) {
	var wrappedKey domain.WrappedKey
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_id, method, ciphertext, nonce, salt, kdf_time, kdf_memory, kdf_threads, created_at, updated_at
			  FROM wrapped_keys WHERE user_id = ? AND method = ?`

	err := querier.QueryRowContext(ctx, query, userID, method).Scan(
		&wrappedKey.ID,
		&wrappedKey.UserID,
		&wrappedKey.Method,
		&wrappedKey.Ciphertext,
		&wrappedKey.Nonce,
		&wrappedKey.Salt,
		&wrappedKey.KDFTime,
		&wrappedKey.KDFMemory,
		&wrappedKey.KDFThreads,
		&wrappedKey.CreatedAt,
		&wrappedKey.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotProvisioned
		}
		return nil, apperrors.Wrap(err, "failed to get wrapped key")
	}

	return &wrappedKey, nil
}
