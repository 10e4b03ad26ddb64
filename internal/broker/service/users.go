package service

import (
	"context"
	"errors"

	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/pkg/idx"
	"github.com/mona-chen/jean/pkg/slogx"
)

type UserService struct {
	Store store.Store
}

// Provision returns the user for a chat identity, creating it on first
// sight. Concurrent first exchanges for the same identity converge on one
// row.
func (s *UserService) Provision(ctx context.Context, matrixUserID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByMatrixID(ctx, matrixUserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	local, homeserver := domain.SplitMatrixUserID(matrixUserID)
	u = domain.User{
		ID:               idx.New(idx.User).String(),
		MatrixUserID:     matrixUserID,
		MatrixUsername:   local,
		MatrixHomeserver: homeserver,
		WalletID:         domain.WalletIDFor(matrixUserID),
	}

	err = s.Store.Users().CreateUser(ctx, u)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return s.Store.Users().GetUserByMatrixID(ctx, matrixUserID)
	case err != nil:
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("provisioned user", "user_id", u.ID, "matrix_user_id", matrixUserID)
	return s.Store.Users().GetUserByMatrixID(ctx, matrixUserID)
}

// Lookup returns store.ErrNotFound for identities never seen.
func (s *UserService) Lookup(ctx context.Context, matrixUserID string) (domain.User, error) {
	return s.Store.Users().GetUserByMatrixID(ctx, matrixUserID)
}
