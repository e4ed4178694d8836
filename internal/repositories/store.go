// Package repositories persists identities and the password reset ledger.
package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"server-identity/internal/schemas"
)

var (
	// ErrNotFound is returned when no live row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the persistence contract of the identity service.
//
// User lookups never return soft deleted identities. DeleteResetEntry removes the PENDING
// entry holding the token and returns it, or ErrNotFound when no such entry exists; two
// concurrent calls for the same token never both succeed.
type Store interface {
	CreateUser(ctx context.Context, user *schemas.User) error
	GetUserByEmail(ctx context.Context, email string) (*schemas.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*schemas.User, error)
	UpdateUser(ctx context.Context, user *schemas.User) error

	CreateResetEntry(ctx context.Context, entry *schemas.PasswordResetEntry) error
	DeleteResetEntry(ctx context.Context, token string) (*schemas.PasswordResetEntry, error)
	ListResetEntries(ctx context.Context, email string) ([]schemas.PasswordResetEntry, error)

	CreateAccessLog(ctx context.Context, entry *schemas.AccessLog) error
	ListAccessLogs(ctx context.Context, userID uuid.UUID) ([]schemas.AccessLog, error)

	// RunInTx runs fn against a transactional view of the store. The changes made through
	// that view are discarded when fn returns an error.
	RunInTx(ctx context.Context, fn func(tx Store) error) error
}
