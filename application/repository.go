package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"laborbook/db"
)

const (
	uniqueJobLabor = "job_applications_job_labor_key"
	appColumns     = `id, job_id, labor_id, supervisor_id, status, applied_at, updated_at`
)

type Repository interface {
	Insert(ctx context.Context, tx pgx.Tx, app Application) (Application, error)
	Exists(ctx context.Context, tx pgx.Tx, jobID, laborID string) (bool, error)
	Get(ctx context.Context, q db.Querier, id string) (Application, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Application, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Application, error)
	ForLabor(ctx context.Context, laborID string) ([]Application, error)
	ForJob(ctx context.Context, jobID string) ([]Application, error)
}

type PGRepository struct {
	q db.Querier
}

func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

// Insert writes the application. The (job_id, labor_id) unique index turns a
// concurrent duplicate into ErrAlreadyApplied.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, app Application) (Application, error) {
	const query = `
		INSERT INTO job_applications (id, job_id, labor_id, supervisor_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + appColumns

	created, err := scanApplication(tx.QueryRow(ctx, query, app.ID, app.JobID, app.LaborID, app.SupervisorID, app.Status))
	if err != nil {
		if db.IsUniqueViolation(err, uniqueJobLabor) {
			return Application{}, ErrAlreadyApplied
		}
		return Application{}, fmt.Errorf("application: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Exists(ctx context.Context, tx pgx.Tx, jobID, laborID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM job_applications WHERE job_id = $1 AND labor_id = $2)`, jobID, laborID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("application: exists: %w", err)
	}
	return exists, nil
}

func (r *PGRepository) Get(ctx context.Context, q db.Querier, id string) (Application, error) {
	if q == nil {
		q = r.q
	}
	return getOne(ctx, q, "get", `SELECT `+appColumns+` FROM job_applications WHERE id = $1`, id)
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Application, error) {
	return getOne(ctx, tx, "get for update", `SELECT `+appColumns+` FROM job_applications WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Application, error) {
	const query = `
		UPDATE job_applications
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + appColumns
	return getOne(ctx, tx, "update status", query, id, status)
}

func (r *PGRepository) ForLabor(ctx context.Context, laborID string) ([]Application, error) {
	return r.list(ctx, "for labor", `SELECT `+appColumns+` FROM job_applications WHERE labor_id = $1`, laborID)
}

func (r *PGRepository) ForJob(ctx context.Context, jobID string) ([]Application, error) {
	return r.list(ctx, "for job", `SELECT `+appColumns+` FROM job_applications WHERE job_id = $1`, jobID)
}

func (r *PGRepository) list(ctx context.Context, op, query string, args ...any) ([]Application, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("application: %s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Application, 0, 8)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("application: %s scan: %w", op, err)
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("application: %s iterate: %w", op, err)
	}
	return out, nil
}

func getOne(ctx context.Context, q db.Querier, op, query string, args ...any) (Application, error) {
	app, err := scanApplication(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, fmt.Errorf("application: %s: %w", op, err)
	}
	return app, nil
}

func scanApplication(row pgx.Row) (Application, error) {
	var app Application
	err := row.Scan(&app.ID, &app.JobID, &app.LaborID, &app.SupervisorID, &app.Status, &app.AppliedAt, &app.UpdatedAt)
	return app, err
}
