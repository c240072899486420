package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "saraban/contracts/mq"
	"saraban/internal/model"
	"saraban/pkg/outbox"
	"saraban/pkg/trace"
)

// AuditRepository is append-only: there is no update or delete path.
type AuditRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

// NewAuditRepository builds the repository. When ob is nil no outbox events
// are written.
func NewAuditRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, outbox: ob, logger: logger}
}

// Insert appends l, filling ID and Timestamp from the store. The
// audit.recorded outbox event commits in the same transaction. Ids are
// not guaranteed to become visible in order across concurrent inserts.
func (r *AuditRepository) Insert(ctx context.Context, l *model.AuditLog) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO audit_logs (entity_id, action, actor, details)
        VALUES ($1, $2, $3, $4)
        RETURNING id, timestamp
    `
	if err := tx.QueryRow(ctx, query, l.EntityID, l.Action, l.Actor, l.Details).Scan(&l.ID, &l.Timestamp); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	if r.outbox != nil {
		payload := mqcontracts.AuditRecordedPayload{
			AuditID:   l.ID,
			EntityID:  l.EntityID,
			Action:    l.Action,
			Actor:     l.Actor,
			Details:   l.Details,
			Timestamp: l.Timestamp,
			TraceID:   trace.FromContext(ctx),
		}
		id := l.ID
		if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "audit_log", &id, mqcontracts.RoutingKeyAuditRecorded, payload); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

const auditSelect = `
        SELECT l.id, l.entity_id, l.action, l.actor, l.details, l.timestamp, p.code, p.name
        FROM audit_logs l
        LEFT JOIN projects p ON p.id = l.entity_id
`

// ListByEntity returns the history of one project, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityID int) ([]model.AuditLog, error) {
	return r.query(ctx, auditSelect+` WHERE l.entity_id = $1 ORDER BY l.id DESC`, entityID)
}

// ListAll returns the whole history, newest first.
func (r *AuditRepository) ListAll(ctx context.Context) ([]model.AuditLog, error) {
	return r.query(ctx, auditSelect+` ORDER BY l.id DESC`)
}

// Latest returns at most limit rows ordered by id descending.
func (r *AuditRepository) Latest(ctx context.Context, limit int) ([]model.AuditLog, error) {
	return r.query(ctx, auditSelect+` ORDER BY l.id DESC LIMIT $1`, limit)
}

func (r *AuditRepository) query(ctx context.Context, query string, args ...any) ([]model.AuditLog, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.AuditLog{}
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.EntityID, &l.Action, &l.Actor, &l.Details, &l.Timestamp,
			&l.ProjectCode, &l.ProjectName); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

