package model

import "time"

type PushSubscription struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"-"`
	AuthKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	NotifTypeHoldRelease = "hold_release"
)

// SentNotification dedupes scheduler sends: one notification per
// (org, type, ref) tuple.
type SentNotification struct {
	ID     int64     `json:"id"`
	OrgID  int64     `json:"org_id"`
	Type   string    `json:"type"`
	RefID  string    `json:"ref_id"`
	SentAt time.Time `json:"sent_at"`
}
