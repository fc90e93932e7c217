package store

import (
	"database/sql"
	"fmt"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record appends an audit entry. Callers treat failures as advisory: the
// mutation it describes has already committed.
func (s *AuditStore) Record(orgID, actorUserID int64, entity string, entityID int64, action, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_logs (org_id, actor_user_id, entity, entity_id, action, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		orgID, actorUserID, entity, entityID, action, detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *AuditStore) ListRecent(orgID int64, limit int) ([]model.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, org_id, actor_user_id, entity, entity_id, action, detail, created_at
		 FROM audit_logs WHERE org_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		orgID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []model.AuditLog
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.OrgID, &l.ActorUserID, &l.Entity, &l.EntityID, &l.Action, &l.Detail, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
