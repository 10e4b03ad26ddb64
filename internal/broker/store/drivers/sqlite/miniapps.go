package sqlite

import (
	"context"
	"strings"

	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store/drivers/sqlite/gen"
)

type miniAppsRepo struct {
	q *gen.Queries
}

func (r *miniAppsRepo) GetMiniApp(ctx context.Context, appID string) (domain.MiniApp, error) {
	row, err := r.q.GetMiniApp(ctx, appID)
	if err != nil {
		return domain.MiniApp{}, mapNotFound(err)
	}
	return mapMiniApp(row), nil
}

func (r *miniAppsRepo) ListMiniApps(ctx context.Context) ([]domain.MiniApp, error) {
	rows, err := r.q.ListMiniApps(ctx)
	if err != nil {
		return nil, err
	}

	apps := make([]domain.MiniApp, len(rows))
	for i, row := range rows {
		apps[i] = mapMiniApp(row)
	}
	return apps, nil
}

func (r *miniAppsRepo) UpsertMiniApp(ctx context.Context, app domain.MiniApp) error {
	clientType := app.ClientType
	if clientType == "" {
		clientType = domain.ClientTypePublic
	}
	status := app.Status
	if status == "" {
		status = domain.MiniAppActive
	}

	return r.q.UpsertMiniApp(ctx, gen.UpsertMiniAppParams{
		AppID:            app.AppID,
		Name:             app.Name,
		Description:      app.Description,
		ClientType:       string(clientType),
		Status:           string(status),
		SecretHash:       mapStringNull(app.SecretHash),
		RedirectUris:     strings.Join(app.RedirectURIs, " "),
		RegisteredScopes: strings.Join(app.RegisteredScopes, " "),
	})
}

func (r *miniAppsRepo) UpdateMiniAppStatus(
	ctx context.Context,
	appID string,
	status domain.MiniAppStatus,
) error {
	return r.q.UpdateMiniAppStatus(ctx, gen.UpdateMiniAppStatusParams{
		Status: string(status),
		AppID:  appID,
	})
}
