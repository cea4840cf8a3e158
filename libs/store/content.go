package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lashstudio/studio-backend/libs/db"
	"github.com/lashstudio/studio-backend/libs/model"
)

type ContentRepository struct {
	pool *db.Pool
}

func NewContentRepository(pool *db.Pool) *ContentRepository {
	return &ContentRepository{pool: pool}
}

func (r *ContentRepository) ListTestimonials(ctx context.Context, featuredOnly bool) ([]model.Testimonial, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_name, rating, review_text, service_received, appointment_id, is_featured,
			is_approved, display_order, source, approved_at, approved_by, created_at
		FROM testimonials
		WHERE is_approved AND (NOT $1 OR is_featured)
		ORDER BY display_order, created_at DESC
	`, featuredOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Testimonial
	for rows.Next() {
		var t model.Testimonial
		if err := rows.Scan(&t.ID, &t.ClientName, &t.Rating, &t.ReviewText, &t.ServiceReceived, &t.AppointmentID,
			&t.IsFeatured, &t.IsApproved, &t.DisplayOrder, &t.Source, &t.ApprovedAt, &t.ApprovedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ContentRepository) CreateTestimonial(ctx context.Context, t *model.Testimonial) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO testimonials
			(id, client_name, rating, review_text, service_received, appointment_id, is_featured, is_approved,
			 display_order, source, approved_at, approved_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, t.ID, t.ClientName, t.Rating, t.ReviewText, t.ServiceReceived, t.AppointmentID, t.IsFeatured, t.IsApproved,
		t.DisplayOrder, t.Source, t.ApprovedAt, t.ApprovedBy, t.CreatedAt)
	return err
}

func (r *ContentRepository) ListBlocks(ctx context.Context, pageSlug string) ([]model.ContentBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, page_slug, block_type, block_name, content, display_order, is_active, responsive,
			created_by, created_at, updated_at
		FROM content_blocks
		WHERE page_slug = $1 AND is_active
		ORDER BY display_order
	`, pageSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ContentBlock
	for rows.Next() {
		var (
			b                   model.ContentBlock
			content, responsive []byte
		)
		if err := rows.Scan(&b.ID, &b.PageSlug, &b.BlockType, &b.BlockName, &content, &b.DisplayOrder, &b.IsActive,
			&responsive, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Content = content
		if len(responsive) > 0 {
			b.Responsive = responsive
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *ContentRepository) CreateBlock(ctx context.Context, b *model.ContentBlock) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO content_blocks
			(id, page_slug, block_type, block_name, content, display_order, is_active, responsive, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, b.ID, b.PageSlug, b.BlockType, b.BlockName, []byte(b.Content), b.DisplayOrder, b.IsActive,
		rawOrNil(b.Responsive), b.CreatedBy, now)
	return err
}

func (r *ContentRepository) CreateMedia(ctx context.Context, m *model.MediaItem) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	tags, err := jsonb(nonNil(m.Tags))
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO media_library
			(id, filename, original_filename, file_path, public_url, file_size, mime_type, alt_text, caption,
			 tags, usage_context, usage_count, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, m.ID, m.Filename, m.OriginalFilename, m.FilePath, m.PublicURL, m.FileSize, m.MimeType, m.AltText,
		m.Caption, tags, m.UsageContext, m.UsageCount, m.UploadedBy, m.CreatedAt)
	return err
}
