package model

import "time"

type Matter struct {
	ID           int64      `json:"id"`
	OrgID        int64      `json:"org_id"`
	ClientID     int64      `json:"client_id"`
	Name         string     `json:"name"`
	MatterNumber string     `json:"matter_number"`
	Status       string     `json:"status"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const (
	MatterOpen   = "open"
	MatterClosed = "closed"
)

// MatterBalance is the derived ledger position for one matter.
type MatterBalance struct {
	MatterID  int64 `json:"matter_id"`
	Deposits  Cents `json:"deposits_cents"`
	Interest  Cents `json:"interest_cents"`
	Disbursed Cents `json:"disbursed_cents"`
	Held      Cents `json:"held_cents"`
	Balance   Cents `json:"balance_cents"`
	Available Cents `json:"available_cents"`
}
