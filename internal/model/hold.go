package model

import "time"

type Hold struct {
	ID          int64      `json:"id"`
	OrgID       int64      `json:"org_id"`
	MatterID    int64      `json:"matter_id"`
	AmountCents Cents      `json:"amount_cents"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	ReleaseAt   *time.Time `json:"release_at"`
	ReleasedAt  *time.Time `json:"released_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

const (
	HoldActive   = "active"
	HoldReleased = "released"
)
