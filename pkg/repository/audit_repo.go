package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

// AuditRepository appends audit entries. Nothing in the service reads them
// back; they exist for operators.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO audit_log (id, actor_id, action, entity, entity_id, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.Entity, entry.EntityID,
		nullableJSON(entry.Changes), entry.CreatedAt,
	)
	return err
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
