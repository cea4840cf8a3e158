package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lashstudio/studio-backend/libs/db"
	"github.com/lashstudio/studio-backend/libs/model"
)

const mainSettingsID = "main"

type SettingsRepository struct {
	pool *db.Pool
}

func NewSettingsRepository(pool *db.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) Get(ctx context.Context) (model.SiteSettings, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx, `SELECT data FROM site_settings WHERE id = $1`, mainSettingsID).Scan(&raw); err != nil {
		return nil, notFound(err)
	}
	s := model.SiteSettings{}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Integrations reports ok=false when no settings document exists yet.
func (r *SettingsRepository) Integrations(ctx context.Context) (model.Integrations, bool, error) {
	s, err := r.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return model.Integrations{}, false, nil
	}
	if err != nil {
		return model.Integrations{}, false, err
	}
	in, err := s.Integrations()
	return in, err == nil, err
}

// Merge shallow-merges patch into the document, creating it if needed.
func (r *SettingsRepository) Merge(ctx context.Context, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO site_settings (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET data = site_settings.data || EXCLUDED.data, updated_at = now()
	`, mainSettingsID, raw)
	return err
}

func (r *SettingsRepository) Replace(ctx context.Context, doc model.SiteSettings) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO site_settings (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, mainSettingsID, raw)
	return err
}
