package store

import (
	"context"
	"errors"

	"github.com/mona-chen/jean/internal/broker/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for durable broker state. Cached
// state (consent sessions, refresh handles, idempotency guards) lives in the
// cache package instead.
type Store interface {
	Users() Users
	MiniApps() MiniApps
	Approvals() Approvals

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. It commits when fn returns
	// nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByMatrixID returns the user provisioned for a chat identity.
	GetUserByMatrixID(ctx context.Context, matrixUserID string) (domain.User, error)

	// CreateUser inserts a user. Returns ErrAlreadyExists when the chat
	// identity is already provisioned.
	CreateUser(ctx context.Context, u domain.User) error

	CountUsers(ctx context.Context) (int64, error)
}

type MiniApps interface {
	GetMiniApp(ctx context.Context, appID string) (domain.MiniApp, error)
	ListMiniApps(ctx context.Context) ([]domain.MiniApp, error)

	// UpsertMiniApp inserts the app or replaces every mutable field of an
	// existing registration.
	UpsertMiniApp(ctx context.Context, app domain.MiniApp) error

	UpdateMiniAppStatus(ctx context.Context, appID string, status domain.MiniAppStatus) error
}

type Approvals interface {
	CreateApproval(ctx context.Context, a domain.Approval) error

	// ListApprovals returns approvals for the given scopes, newest first.
	ListApprovals(ctx context.Context, userID, miniAppID string, scopes []string, limit int) ([]domain.Approval, error)

	// ApprovedScopes returns the subset of scopes with at least one approval.
	ApprovedScopes(ctx context.Context, userID, miniAppID string, scopes []string) ([]string, error)
}
