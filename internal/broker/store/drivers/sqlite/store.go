package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/internal/broker/store/drivers/sqlite/gen"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users         { return &usersRepo{q: s.q} }
func (s *Store) MiniApps() store.MiniApps   { return &miniAppsRepo{q: s.q} }
func (s *Store) Approvals() store.Approvals { return &approvalsRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		}
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// splitList reverses strings.Join(list, " ") without yielding [""] for an
// empty column.
func splitList(s string) []string {
	return strings.Fields(s)
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		ID:               row.ID,
		MatrixUserID:     row.MatrixUserID,
		MatrixUsername:   row.MatrixUsername,
		MatrixHomeserver: row.MatrixHomeserver,
		WalletID:         row.WalletID,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func mapMiniApp(row gen.MiniApp) domain.MiniApp {
	return domain.MiniApp{
		AppID:            row.AppID,
		Name:             row.Name,
		Description:      row.Description,
		ClientType:       domain.ClientType(row.ClientType),
		Status:           domain.MiniAppStatus(row.Status),
		SecretHash:       mapNullString(row.SecretHash),
		RedirectURIs:     splitList(row.RedirectUris),
		RegisteredScopes: splitList(row.RegisteredScopes),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func mapApproval(row gen.AuthorizationApproval) domain.Approval {
	return domain.Approval{
		ID:         row.ID,
		UserID:     row.UserID,
		MiniAppID:  row.MiniappID,
		Scope:      row.Scope,
		ApprovedAt: row.ApprovedAt,
		Method:     row.ApprovalMethod,
		CreatedAt:  row.CreatedAt,
	}
}
