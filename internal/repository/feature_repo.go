package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"saraban/internal/model"
)

type FeatureRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewFeatureRepository(db *pgxpool.Pool, logger *zap.Logger) *FeatureRepository {
	return &FeatureRepository{db: db, logger: logger}
}

const featureColumns = `id, project_id, title, detail, next_list, status, start_date, due_date,
	remark, note_by, created_at, updated_at`

func scanFeature(row pgx.Row) (model.ProjectFeature, error) {
	var (
		f          model.ProjectFeature
		start, due *time.Time
	)
	err := row.Scan(&f.ID, &f.ProjectID, &f.Title, &f.Detail, &f.NextList, &f.Status,
		&start, &due, &f.Remark, &f.NoteBy, &f.CreatedAt, &f.UpdatedAt)
	f.StartDate = model.DateFromPtr(start)
	f.DueDate = model.DateFromPtr(due)
	return f, err
}

// ListByProject returns the timeline of a project ordered by start date.
func (r *FeatureRepository) ListByProject(ctx context.Context, projectID int) ([]model.ProjectFeature, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+featureColumns+`
        FROM project_features
        WHERE project_id = $1
        ORDER BY start_date ASC NULLS LAST, id ASC
    `, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	features := []model.ProjectFeature{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

func (r *FeatureRepository) Get(ctx context.Context, id int) (*model.ProjectFeature, error) {
	f, err := scanFeature(r.db.QueryRow(ctx, `SELECT `+featureColumns+` FROM project_features WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &f, nil
}

// Insert fails with apperr.ErrNotFound when the project does not exist.
func (r *FeatureRepository) Insert(ctx context.Context, f *model.ProjectFeature) error {
	query := `
        INSERT INTO project_features
            (project_id, title, detail, next_list, status, start_date, due_date, remark, note_by)
        SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
        WHERE EXISTS (SELECT 1 FROM projects WHERE id = $1)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		f.ProjectID, f.Title, f.Detail, f.NextList, f.Status,
		f.StartDate.Ptr(), f.DueDate.Ptr(), f.Remark, f.NoteBy,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return mapNoRows(err)
	}
	r.logger.Debug("Feature inserted", zap.Int("id", f.ID), zap.Int("project_id", f.ProjectID))
	return nil
}

func (r *FeatureRepository) Update(ctx context.Context, f *model.ProjectFeature) error {
	query := `
        UPDATE project_features
        SET title = $1, detail = $2, next_list = $3, status = $4, start_date = $5,
            due_date = $6, remark = $7, note_by = $8, updated_at = NOW()
        WHERE id = $9
        RETURNING project_id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		f.Title, f.Detail, f.NextList, f.Status, f.StartDate.Ptr(),
		f.DueDate.Ptr(), f.Remark, f.NoteBy, f.ID,
	).Scan(&f.ProjectID, &f.CreatedAt, &f.UpdatedAt)
	return mapNoRows(err)
}

// Delete removes the feature and returns the project it belonged to.
func (r *FeatureRepository) Delete(ctx context.Context, id int) (int, error) {
	var projectID int
	err := r.db.QueryRow(ctx, `DELETE FROM project_features WHERE id = $1 RETURNING project_id`, id).Scan(&projectID)
	if err != nil {
		return 0, mapNoRows(err)
	}
	return projectID, nil
}

