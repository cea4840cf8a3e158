package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lashstudio/studio-backend/libs/db"
	"github.com/lashstudio/studio-backend/libs/model"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, role, profile, preferences, medical_info, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u                          model.User
		role                       string
		profile, prefs, medicalRaw []byte
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &profile, &prefs, &medicalRaw, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if err := unjson(profile, &u.Profile); err != nil {
		return model.User{}, err
	}
	if err := unjson(prefs, &u.Preferences); err != nil {
		return model.User{}, err
	}
	if len(medicalRaw) > 0 {
		u.MedicalInfo = medicalRaw
	}
	return u, nil
}

// Create inserts u; a duplicate email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	docs, err := marshalAll(u.Profile, u.Preferences)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, profile, preferences, medical_info, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, u.ID, u.Email, u.PasswordHash, string(u.Role), docs[0], docs[1], rawOrNil(u.MedicalInfo), u.IsActive, now)
	if IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *UserRepository) Get(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, notFound(err)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
	return u, notFound(err)
}

// Save writes the editable fields of u.
func (r *UserRepository) Save(ctx context.Context, u model.User) error {
	docs, err := marshalAll(u.Profile, u.Preferences)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET role = $2, profile = $3, preferences = $4, medical_info = $5, is_active = $6, updated_at = now()
		WHERE id = $1
	`, u.ID, string(u.Role), docs[0], docs[1], rawOrNil(u.MedicalInfo), u.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func rawOrNil(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
