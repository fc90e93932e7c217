package model

import "time"

type Transaction struct {
	ID          int64     `json:"id"`
	OrgID       int64     `json:"org_id"`
	MatterID    int64     `json:"matter_id"`
	Type        string    `json:"type"`
	AmountCents Cents     `json:"amount_cents"`
	Payee       string    `json:"payee"`
	Reference   string    `json:"reference"`
	Description string    `json:"description"`
	Cleared     bool      `json:"cleared"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	TxDeposit      = "deposit"
	TxDisbursement = "disbursement"
	TxInterest     = "interest"
)

// Signed returns the amount with ledger sign: deposits and interest add,
// disbursements subtract.
func (t *Transaction) Signed() Cents {
	if t.Type == TxDisbursement {
		return -t.AmountCents
	}
	return t.AmountCents
}

// DashboardStats aggregates an organization's trust position.
type DashboardStats struct {
	TotalHeld      Cents `json:"total_held_cents"`
	TotalAvailable Cents `json:"total_available_cents"`
	ActiveClients  int   `json:"active_clients"`
	OpenMatters    int   `json:"open_matters"`
	Uncleared      int   `json:"uncleared_transactions"`
	ActiveHolds    Cents `json:"active_holds_cents"`
}
