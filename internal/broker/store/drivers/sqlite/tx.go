package sqlite

import (
	"context"
	"database/sql"

	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/internal/broker/store/drivers/sqlite/gen"
)

type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{
		tx: tx,
		q:  gen.New(tx),
	}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits or rolls back

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users         { return &usersRepo{q: t.q} }
func (t *txStore) MiniApps() store.MiniApps   { return &miniAppsRepo{q: t.q} }
func (t *txStore) Approvals() store.Approvals { return &approvalsRepo{q: t.q} }

func (t *txStore) ApplyMigrations() error { return nil } // applied before any tx starts
