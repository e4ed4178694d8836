package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"server-identity/internal/interfaces"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

const uniqueViolation = "23505"

const userColumns = "user_id, email, password, first_name, last_name, user_type, login_token, " +
	"is_verified, is_active, is_deleted, deleted_at, last_password_update, created_at"

const resetColumns = "reset_id, email, token, status, created_at"

const accessLogColumns = "log_id, user_id, login_token, request_id, method, url, status_code, device_ip, user_agent, created_at"

// PostgresStore implements Store on top of a pgx pool. Inside RunInTx the same type wraps
// the transaction instead, in which case pool is nil.
type PostgresStore struct {
	db   interfaces.DBTX
	pool interfaces.PgxPoolIface
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool interfaces.PgxPoolIface) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool}
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *schemas.User) error {
	queryString := "INSERT INTO identity_schema.users (" + userColumns + ") " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)"

	_, err := s.db.Exec(ctx, queryString, user.ID, user.Email, user.Password, user.FirstName, user.LastName,
		string(user.UserType), user.LoginToken, user.IsVerified, user.IsActive, user.IsDeleted, user.DeletedAt,
		user.LastPasswordUpdate, user.CreatedAt)
	return translateError(err)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*schemas.User, error) {
	queryString := "SELECT " + userColumns + " FROM identity_schema.users WHERE email = $1 AND is_deleted = FALSE"
	return scanUser(s.db.QueryRow(ctx, queryString, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*schemas.User, error) {
	queryString := "SELECT " + userColumns + " FROM identity_schema.users WHERE user_id = $1 AND is_deleted = FALSE"
	return scanUser(s.db.QueryRow(ctx, queryString, id))
}

// UpdateUser writes every mutable column of the user.
func (s *PostgresStore) UpdateUser(ctx context.Context, user *schemas.User) error {
	queryString := "UPDATE identity_schema.users SET email = $2, password = $3, first_name = $4, last_name = $5, " +
		"user_type = $6, login_token = $7, is_verified = $8, is_active = $9, is_deleted = $10, deleted_at = $11, " +
		"last_password_update = $12 WHERE user_id = $1"

	tag, err := s.db.Exec(ctx, queryString, user.ID, user.Email, user.Password, user.FirstName, user.LastName,
		string(user.UserType), user.LoginToken, user.IsVerified, user.IsActive, user.IsDeleted, user.DeletedAt,
		user.LastPasswordUpdate)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateResetEntry(ctx context.Context, entry *schemas.PasswordResetEntry) error {
	queryString := "INSERT INTO identity_schema.password_resets (" + resetColumns + ") VALUES ($1, $2, $3, $4, $5)"
	_, err := s.db.Exec(ctx, queryString, entry.ID, entry.Email, entry.Token, string(entry.Status), entry.CreatedAt)
	return translateError(err)
}

// DeleteResetEntry is a conditioned delete: a concurrent caller blocks on the row lock and
// sees no row once the winner commits.
func (s *PostgresStore) DeleteResetEntry(ctx context.Context, token string) (*schemas.PasswordResetEntry, error) {
	queryString := "DELETE FROM identity_schema.password_resets WHERE token = $1 AND status = $2 RETURNING " + resetColumns
	return scanResetEntry(s.db.QueryRow(ctx, queryString, token, string(schemas.PasswordResetPending)))
}

func (s *PostgresStore) ListResetEntries(ctx context.Context, email string) ([]schemas.PasswordResetEntry, error) {
	queryString := "SELECT " + resetColumns + " FROM identity_schema.password_resets WHERE email = $1 ORDER BY created_at"
	rows, err := s.db.Query(ctx, queryString, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]schemas.PasswordResetEntry, 0)
	for rows.Next() {
		entry, err := scanResetEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) CreateAccessLog(ctx context.Context, entry *schemas.AccessLog) error {
	queryString := "INSERT INTO identity_schema.access_logs (" + accessLogColumns + ") " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"
	_, err := s.db.Exec(ctx, queryString, entry.ID, entry.UserID, entry.LoginToken, entry.RequestID, entry.Method,
		entry.URL, entry.StatusCode, entry.DeviceIP, entry.UserAgent, entry.CreatedAt)
	return translateError(err)
}

func (s *PostgresStore) ListAccessLogs(ctx context.Context, userID uuid.UUID) ([]schemas.AccessLog, error) {
	queryString := "SELECT " + accessLogColumns + " FROM identity_schema.access_logs WHERE user_id = $1 ORDER BY created_at"
	rows, err := s.db.Query(ctx, queryString, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]schemas.AccessLog, 0)
	for rows.Next() {
		var entry schemas.AccessLog
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.LoginToken, &entry.RequestID, &entry.Method, &entry.URL,
			&entry.StatusCode, &entry.DeviceIP, &entry.UserAgent, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	utils.LogMessageWithFields(ctx, "debug", "Beginning transaction...")
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "error", "Error beginning transaction", err)
		return err
	}

	if err = fn(&PostgresStore{db: tx}); err != nil {
		utils.LogMessageWithFields(ctx, "debug", "Rolling back transaction...")
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			utils.LogMessageWithFieldsAndError(ctx, "error", "Error rolling back transaction", rbErr)
		}
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "error", "Error committing transaction", err)
		return err
	}
	utils.LogMessageWithFields(ctx, "debug", "Transaction committed")
	return nil
}

func scanUser(row pgx.Row) (*schemas.User, error) {
	user := &schemas.User{}
	var userType string

	err := row.Scan(&user.ID, &user.Email, &user.Password, &user.FirstName, &user.LastName, &userType,
		&user.LoginToken, &user.IsVerified, &user.IsActive, &user.IsDeleted, &user.DeletedAt,
		&user.LastPasswordUpdate, &user.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}

	user.UserType = schemas.UserType(userType)
	return user, nil
}

func scanResetEntry(row pgx.Row) (*schemas.PasswordResetEntry, error) {
	entry := &schemas.PasswordResetEntry{}
	var status string

	if err := row.Scan(&entry.ID, &entry.Email, &entry.Token, &status, &entry.CreatedAt); err != nil {
		return nil, translateError(err)
	}

	entry.Status = schemas.PasswordResetStatus(status)
	return entry, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
