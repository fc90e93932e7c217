package model

import "time"

type Session struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	UserID      int64     `json:"user_id"`
	ActiveOrgID *int64    `json:"active_org_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given
// instant. An expires_at exactly equal to now counts as expired.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
