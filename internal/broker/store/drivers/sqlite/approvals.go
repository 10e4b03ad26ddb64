package sqlite

import (
	"context"
	"time"

	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store/drivers/sqlite/gen"
)

type approvalsRepo struct {
	q *gen.Queries
}

func (r *approvalsRepo) CreateApproval(ctx context.Context, a domain.Approval) error {
	approvedAt := a.ApprovedAt
	if approvedAt.IsZero() {
		approvedAt = time.Now()
	}

	// Whole seconds in UTC keep the stored text sortable; ties fall back to
	// the time-ordered id.
	return mapConstraint(r.q.CreateApproval(ctx, gen.CreateApprovalParams{
		ID:             a.ID,
		UserID:         a.UserID,
		MiniappID:      a.MiniAppID,
		Scope:          a.Scope,
		ApprovedAt:     approvedAt.UTC().Truncate(time.Second),
		ApprovalMethod: a.Method,
	}))
}

func (r *approvalsRepo) ListApprovals(
	ctx context.Context,
	userID, miniAppID string,
	scopes []string,
	limit int,
) ([]domain.Approval, error) {
	rows, err := r.q.ListApprovals(ctx, gen.ListApprovalsParams{
		UserID:    userID,
		MiniappID: miniAppID,
		Scopes:    scopes,
		Limit:     int64(limit),
	})
	if err != nil {
		return nil, err
	}

	approvals := make([]domain.Approval, len(rows))
	for i, row := range rows {
		approvals[i] = mapApproval(row)
	}
	return approvals, nil
}

func (r *approvalsRepo) ApprovedScopes(
	ctx context.Context,
	userID, miniAppID string,
	scopes []string,
) ([]string, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	return r.q.ListApprovedScopes(ctx, gen.ListApprovedScopesParams{
		UserID:    userID,
		MiniappID: miniAppID,
		Scopes:    scopes,
	})
}
