package sqlite

import (
	"context"

	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) GetUserByMatrixID(ctx context.Context, matrixUserID string) (domain.User, error) {
	row, err := r.q.GetUserByMatrixID(ctx, matrixUserID)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:               u.ID,
		MatrixUserID:     u.MatrixUserID,
		MatrixUsername:   u.MatrixUsername,
		MatrixHomeserver: u.MatrixHomeserver,
		WalletID:         u.WalletID,
	})
	return mapConstraint(err)
}

func (r *usersRepo) CountUsers(ctx context.Context) (int64, error) {
	return r.q.CountUsers(ctx)
}
