package model

import "time"

// AuditLog records a mutation for later review. Advisory, not authoritative:
// it is written outside the mutating transaction.
type AuditLog struct {
	ID          int64     `json:"id"`
	OrgID       int64     `json:"org_id"`
	ActorUserID int64     `json:"actor_user_id"`
	Entity      string    `json:"entity"`
	EntityID    int64     `json:"entity_id"`
	Action      string    `json:"action"`
	Detail      string    `json:"detail"`
	CreatedAt   time.Time `json:"created_at"`
}
