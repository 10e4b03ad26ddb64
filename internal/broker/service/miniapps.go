package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/slogx"
)

// MiniAppRegistration is one entry of the registrations file.
type MiniAppRegistration struct {
	AppID            string   `json:"app_id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ClientType       string   `json:"client_type"`
	Status           string   `json:"status"`
	ClientSecret     string   `json:"client_secret"`
	RedirectURIs     []string `json:"redirect_uris"`
	RegisteredScopes []string `json:"registered_scopes"`
}

type MiniAppService struct {
	Store  store.Store
	Hasher cryptox.SecretHasher
}

// LoadRegistrations reads a JSON array of registrations from path.
func LoadRegistrations(path string) ([]MiniAppRegistration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mini-app registrations: %w", err)
	}
	var regs []MiniAppRegistration
	if err := json.Unmarshal(b, &regs); err != nil {
		return nil, fmt.Errorf("parse mini-app registrations: %w", err)
	}
	return regs, nil
}

// Seed upserts every registration in one transaction. Plaintext secrets are
// hashed before they are stored.
func (s *MiniAppService) Seed(ctx context.Context, regs []MiniAppRegistration) error {
	apps := make([]domain.MiniApp, 0, len(regs))
	for _, r := range regs {
		app, err := s.toMiniApp(r)
		if err != nil {
			return err
		}
		apps = append(apps, app)
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, app := range apps {
			if err := tx.MiniApps().UpsertMiniApp(ctx, app); err != nil {
				return fmt.Errorf("upsert %s: %w", app.AppID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("mini-app registrations loaded", "count", len(apps))
	return nil
}

func (s *MiniAppService) toMiniApp(r MiniAppRegistration) (domain.MiniApp, error) {
	if !domain.ValidMiniAppID(r.AppID) {
		return domain.MiniApp{}, fmt.Errorf("mini-app %q: app_id must match ma_<alnum>", r.AppID)
	}

	app := domain.MiniApp{
		AppID:            r.AppID,
		Name:             r.Name,
		Description:      r.Description,
		ClientType:       domain.ClientType(r.ClientType),
		Status:           domain.MiniAppStatus(r.Status),
		RedirectURIs:     r.RedirectURIs,
		RegisteredScopes: r.RegisteredScopes,
	}
	if app.ClientType == "" {
		app.ClientType = domain.ClientTypePublic
	}
	if app.Status == "" {
		app.Status = domain.MiniAppActive
	}
	if app.Name == "" {
		app.Name = app.AppID
	}

	switch app.ClientType {
	case domain.ClientTypePublic, domain.ClientTypeConfidential, domain.ClientTypeHybrid:
	default:
		return domain.MiniApp{}, fmt.Errorf("mini-app %s: unknown client_type %q", r.AppID, r.ClientType)
	}
	switch app.Status {
	case domain.MiniAppActive, domain.MiniAppDeprecated, domain.MiniAppRemoved:
	default:
		return domain.MiniApp{}, fmt.Errorf("mini-app %s: unknown status %q", r.AppID, r.Status)
	}

	if r.ClientSecret == "" {
		if app.ClientType == domain.ClientTypeConfidential {
			return domain.MiniApp{}, fmt.Errorf("mini-app %s: confidential clients need a client_secret", r.AppID)
		}
		return app, nil
	}

	hash, err := s.Hasher.Hash(r.ClientSecret)
	if err != nil {
		return domain.MiniApp{}, fmt.Errorf("mini-app %s: hash secret: %w", r.AppID, err)
	}
	app.SecretHash = hash
	return app, nil
}
