package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"saraban/internal/model"
)

type NoteRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNoteRepository(db *pgxpool.Pool, logger *zap.Logger) *NoteRepository {
	return &NoteRepository{db: db, logger: logger}
}

// ListByFeature returns the notes of a feature, newest first.
func (r *NoteRepository) ListByFeature(ctx context.Context, featureID int) ([]model.FeatureNote, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, feature_id, content, created_by, created_at, attachment, attachment_type
        FROM feature_notes
        WHERE feature_id = $1
        ORDER BY created_at DESC, id DESC
    `, featureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []model.FeatureNote{}
	for rows.Next() {
		var n model.FeatureNote
		if err := rows.Scan(&n.ID, &n.FeatureID, &n.Content, &n.CreatedBy, &n.CreatedAt,
			&n.Attachment, &n.AttachmentType); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Insert fails with apperr.ErrNotFound when the feature does not exist.
func (r *NoteRepository) Insert(ctx context.Context, n *model.FeatureNote) error {
	query := `
        INSERT INTO feature_notes (feature_id, content, created_by, attachment, attachment_type)
        SELECT $1, $2, $3, $4, $5
        WHERE EXISTS (SELECT 1 FROM project_features WHERE id = $1)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, n.FeatureID, n.Content, n.CreatedBy, n.Attachment, n.AttachmentType).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return mapNoRows(err)
	}
	r.logger.Debug("Note inserted", zap.Int("id", n.ID), zap.Int("feature_id", n.FeatureID))
	return nil
}
