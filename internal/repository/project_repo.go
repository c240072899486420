package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"saraban/internal/apperr"
	"saraban/internal/model"
	"saraban/pkg/otel"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

const projectColumns = `id, code, name, description, owner, budget, status, start_date, end_date, updated_at`

func scanProject(row pgx.Row) (model.Project, error) {
	var (
		p          model.Project
		budget     float64
		start, end *time.Time
	)
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Owner,
		&budget, &p.Status, &start, &end, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Budget = model.Budget(budget)
	p.StartDate = model.DateFromPtr(start)
	p.EndDate = model.DateFromPtr(end)
	return p, nil
}

// List returns every project, most recently updated first.
func (r *ProjectRepository) List(ctx context.Context) (projects []model.Project, err error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY updated_at DESC, id DESC`
	ctx, span := otel.DBSpan(ctx, "select_projects", query)
	defer func() { otel.EndDBSpan(span, err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects = []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Get(ctx context.Context, id int) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

// Codes returns every stored project code.
func (r *ProjectRepository) Codes(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT code FROM projects`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Insert stores p. A code collision returns apperr.ErrDuplicateCode.
func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) (err error) {
	query := `
        INSERT INTO projects (code, name, description, owner, budget, status, start_date, end_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, updated_at
    `
	ctx, span := otel.DBSpan(ctx, "insert_project", query)
	defer func() { otel.EndDBSpan(span, err) }()

	err = r.db.QueryRow(ctx, query,
		p.Code, p.Name, p.Description, p.Owner, p.Budget.Float(), p.Status,
		p.StartDate.Ptr(), p.EndDate.Ptr(),
	).Scan(&p.ID, &p.UpdatedAt)
	if isUniqueViolation(err) {
		r.logger.Warn("Project code collision", zap.String("code", p.Code))
		return fmt.Errorf("%w: %s", apperr.ErrDuplicateCode, p.Code)
	}
	if err != nil {
		r.logger.Error("Failed to insert project", zap.String("code", p.Code), zap.Error(err))
		return err
	}

	r.logger.Info("Project inserted successfully",
		zap.Int("id", p.ID),
		zap.String("code", p.Code),
	)
	return nil
}

// Update overwrites the mutable fields of p. The code never changes.
func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	query := `
        UPDATE projects
        SET name = $1, description = $2, owner = $3, budget = $4, status = $5,
            start_date = $6, end_date = $7, updated_at = NOW()
        WHERE id = $8
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.Name, p.Description, p.Owner, p.Budget.Float(), p.Status,
		p.StartDate.Ptr(), p.EndDate.Ptr(), p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return mapNoRows(err)
	}
	return nil
}

// Delete removes the row. Features and notes go with it through FK
// cascades; audit rows keep the dangling entity id.
func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	r.logger.Info("Project deleted", zap.Int("id", id))
	return nil
}
