package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SequenceRepository hands out per (year, type tag) code sequence numbers.
type SequenceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSequenceRepository(db *pgxpool.Pool, logger *zap.Logger) *SequenceRepository {
	return &SequenceRepository{db: db, logger: logger}
}

// Next atomically allocates the next sequence for (yy, typeTag). floor is
// the highest sequence already present in stored codes, so counters that
// start after legacy data never hand out a used number.
func (r *SequenceRepository) Next(ctx context.Context, yy, typeTag string, floor int) (int, error) {
	query := `
        INSERT INTO code_sequences (year_yy, type_tag, last_seq)
        VALUES ($1, $2, $3::int + 1)
        ON CONFLICT (year_yy, type_tag)
        DO UPDATE SET last_seq = GREATEST(code_sequences.last_seq, $3::int) + 1
        RETURNING last_seq
    `
	var seq int
	if err := r.db.QueryRow(ctx, query, yy, typeTag, floor).Scan(&seq); err != nil {
		return 0, fmt.Errorf("allocate sequence %s/%s: %w", yy, typeTag, err)
	}
	r.logger.Debug("Sequence allocated",
		zap.String("year", yy),
		zap.String("type", typeTag),
		zap.Int("seq", seq),
	)
	return seq, nil
}
