package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lashstudio/studio-backend/libs/db"
	"github.com/lashstudio/studio-backend/libs/model"
)

type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

const serviceColumns = `id, name, description, price, duration_minutes, image_url, features, category,
	is_featured, display_order, is_active, booking_count, total_revenue, created_by, created_at, updated_at`

func scanService(row pgx.Row) (model.ServicePackage, error) {
	var (
		s        model.ServicePackage
		features []byte
	)
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.ImageURL, &features,
		&s.Category, &s.IsFeatured, &s.DisplayOrder, &s.IsActive, &s.BookingCount, &s.TotalRevenue,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.ServicePackage{}, err
	}
	return s, unjson(features, &s.Features)
}

// ListActive returns active packages ordered for display. An empty category matches all.
func (r *ServiceRepository) ListActive(ctx context.Context, category string, featuredOnly bool) ([]model.ServicePackage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM service_packages
		WHERE is_active
		  AND ($1 = '' OR category = $1)
		  AND (NOT $2 OR is_featured)
		ORDER BY display_order, name
	`, category, featuredOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ServicePackage
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ServiceRepository) Get(ctx context.Context, id string) (model.ServicePackage, error) {
	s, err := scanService(r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM service_packages WHERE id = $1`, id))
	return s, notFound(err)
}

func (r *ServiceRepository) Create(ctx context.Context, s *model.ServicePackage) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	features, err := jsonb(nonNil(s.Features))
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO service_packages
			(id, name, description, price, duration_minutes, image_url, features, category, is_featured,
			 display_order, is_active, booking_count, total_revenue, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`, s.ID, s.Name, s.Description, s.Price, s.DurationMinutes, s.ImageURL, features, s.Category,
		s.IsFeatured, s.DisplayOrder, s.IsActive, s.BookingCount, s.TotalRevenue, s.CreatedBy, now)
	return err
}

func (r *ServiceRepository) Save(ctx context.Context, s model.ServicePackage) error {
	features, err := jsonb(nonNil(s.Features))
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_packages
		SET name = $2, description = $3, price = $4, duration_minutes = $5, image_url = $6, features = $7,
			category = $8, is_featured = $9, display_order = $10, is_active = $11, updated_at = now()
		WHERE id = $1
	`, s.ID, s.Name, s.Description, s.Price, s.DurationMinutes, s.ImageURL, features, s.Category,
		s.IsFeatured, s.DisplayOrder, s.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type PromoRepository struct {
	pool *db.Pool
}

func NewPromoRepository(pool *db.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// ListActiveByCode expects an already-normalized code.
func (r *PromoRepository) ListActiveByCode(ctx context.Context, code string) ([]model.PromoCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, description, is_active, valid_from, valid_until, usage_count, usage_limit,
			discount_type, discount_value, min_order_amount, max_discount_amount, applicable_services
		FROM promo_codes
		WHERE code = $1 AND is_active
		ORDER BY valid_until DESC
	`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PromoCode
	for rows.Next() {
		var (
			p        model.PromoCode
			services []byte
		)
		if err := rows.Scan(&p.ID, &p.Code, &p.Description, &p.IsActive, &p.ValidFrom, &p.ValidUntil,
			&p.UsageCount, &p.UsageLimit, &p.DiscountType, &p.DiscountValue, &p.MinOrderAmount,
			&p.MaxDiscountAmount, &services); err != nil {
			return nil, err
		}
		if err := unjson(services, &p.ApplicableServices); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Redeem bumps usage_count; ErrConflict means the limit was hit concurrently.
func (r *PromoRepository) Redeem(ctx context.Context, q Querier, id string) error {
	tag, err := q.Exec(ctx, `
		UPDATE promo_codes
		SET usage_count = usage_count + 1
		WHERE id = $1 AND usage_count < usage_limit
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *PromoRepository) Create(ctx context.Context, p *model.PromoCode) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	services, err := jsonb(nonNil(p.ApplicableServices))
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO promo_codes
			(id, code, description, is_active, valid_from, valid_until, usage_count, usage_limit,
			 discount_type, discount_value, min_order_amount, max_discount_amount, applicable_services)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.Code, p.Description, p.IsActive, p.ValidFrom, p.ValidUntil, p.UsageCount, p.UsageLimit,
		p.DiscountType, p.DiscountValue, p.MinOrderAmount, p.MaxDiscountAmount, services)
	return err
}
