package shared

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/hydrobill/hydrobill/internal/platform/db"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID int64
	Meta     map[string]any
}

// Auditor records audit entries; services depend on this interface.
type Auditor interface {
	Record(ctx context.Context, q db.DBTX, log AuditLog) error
}

// AuditLogger writes records into audit_logs using the caller's connection so the
// entry commits or rolls back with the mutation it describes.
type AuditLogger struct{}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, q db.DBTX, log AuditLog) error {
	if q == nil {
		return errors.New("audit logger: no connection")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == 0 {
		return errors.New("audit log requires action/entity/entity_id")
	}
	if log.ActorID == 0 {
		if p, ok := PrincipalFromContext(ctx); ok {
			log.ActorID = p.ID
		}
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES (NULLIF($1, 0), $2, $3, $4, $5, NOW())`,
		log.ActorID, log.Action, log.Entity, strconv.FormatInt(log.EntityID, 10), metaJSON)
	return err
}

// NopAuditor discards entries; used in tests and tools.
type NopAuditor struct{}

// Record implements Auditor.
func (NopAuditor) Record(context.Context, db.DBTX, AuditLog) error { return nil }
