package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions.
const (
	AuditCreate     = "CREATE"
	AuditUpdate     = "UPDATE"
	AuditDelete     = "DELETE"
	AuditEnable2FA  = "ENABLE_2FA"
	AuditDisable2FA = "DISABLE_2FA"
)

// AuditEntry is an append-only record of a security-relevant mutation.
// The auth core only ever writes these; nothing reads them back.
type AuditEntry struct {
	ID        uuid.UUID
	ActorID   uuid.UUID
	Action    string
	Entity    string
	EntityID  string
	Changes   json.RawMessage
	CreatedAt time.Time
}
