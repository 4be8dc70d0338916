package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"laborbook/db"
	"laborbook/fault"
)

var (
	ErrProfileNotFound = fmt.Errorf("account: profile %w", fault.ErrNotFound)
	ErrDuplicatePhone  = fmt.Errorf("account: phone already registered: %w", fault.ErrConflict)
)

const profileColumns = `id, phone, role, created_at, updated_at`

// Repository handles profile persistence.
type Repository interface {
	Create(ctx context.Context, profile Profile) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
	GetByPhone(ctx context.Context, phone string) (Profile, error)
	UpdateRole(ctx context.Context, id string, role Role) (Profile, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	q db.Querier
}

func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

func (r *PGRepository) Create(ctx context.Context, profile Profile) (Profile, error) {
	const insertSQL = `
		INSERT INTO profiles (id, phone, role)
		VALUES ($1, $2, $3)
		RETURNING ` + profileColumns

	created, err := scanProfile(r.q.QueryRow(ctx, insertSQL, profile.ID, profile.Phone, profile.Role))
	if err != nil {
		if db.IsUniqueViolation(err, "profiles_phone_key") {
			return Profile{}, ErrDuplicatePhone
		}
		return Profile{}, fmt.Errorf("account: create profile: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Profile, error) {
	return r.getOne(ctx, r.q, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *PGRepository) GetByPhone(ctx context.Context, phone string) (Profile, error) {
	return r.getOne(ctx, r.q, `SELECT `+profileColumns+` FROM profiles WHERE phone = $1`, phone)
}

// LockForUpdate takes the profile row lock inside tx. Booking writes for one
// worker serialise on this lock.
func (r *PGRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, id string) (Profile, error) {
	return r.getOne(ctx, tx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) UpdateRole(ctx context.Context, id string, role Role) (Profile, error) {
	const updateSQL = `
		UPDATE profiles
		SET role = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + profileColumns

	return r.getOne(ctx, r.q, updateSQL, id, role)
}

func (r *PGRepository) getOne(ctx context.Context, q db.Querier, query string, args ...any) (Profile, error) {
	profile, err := scanProfile(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("account: query profile: %w", err)
	}
	return profile, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Phone, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
