package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

// ErrInsufficientFunds is returned when a disbursement or hold would take a
// matter's available balance below zero.
var ErrInsufficientFunds = errors.New("insufficient available funds")

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	err := scanner.Scan(&t.ID, &t.OrgID, &t.MatterID, &t.Type, &t.AmountCents, &t.Payee,
		&t.Reference, &t.Description, &t.Cleared, &t.OccurredAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const txCols = `id, org_id, matter_id, type, amount_cents, payee, reference, description, cleared, occurred_at, created_at`

// Create records a ledger entry. Disbursements are checked against the
// matter's available balance inside the same transaction, so two concurrent
// disbursements cannot both drain the matter.
func (s *TransactionStore) Create(orgID, matterID int64, txType string, amount model.Cents, payee, reference, description string, occurredAt time.Time) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin create transaction: %w", err)
	}
	defer tx.Rollback()

	if txType == model.TxDisbursement {
		available, err := availableBalanceTx(tx, matterID)
		if err != nil {
			return nil, err
		}
		if amount > available {
			return nil, ErrInsufficientFunds
		}
	}

	result, err := tx.Exec(
		`INSERT INTO transactions (org_id, matter_id, type, amount_cents, payee, reference, description, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		orgID, matterID, txType, amount, payee, reference, description, occurredAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return s.GetByID(id)
}

func (s *TransactionStore) GetByID(id int64) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+txCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionStore) ListByMatter(matterID int64) ([]model.Transaction, error) {
	return s.query(`SELECT `+txCols+` FROM transactions WHERE matter_id = ? ORDER BY occurred_at, id`, matterID)
}

func (s *TransactionStore) ListByOrg(orgID int64) ([]model.Transaction, error) {
	return s.query(`SELECT `+txCols+` FROM transactions WHERE org_id = ? ORDER BY occurred_at DESC, id DESC`, orgID)
}

func (s *TransactionStore) query(q string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// SetCleared flips the bank-cleared flag used by reconciliation.
func (s *TransactionStore) SetCleared(id int64, cleared bool) (*model.Transaction, error) {
	_, err := s.db.Exec(`UPDATE transactions SET cleared = ? WHERE id = ?`, cleared, id)
	if err != nil {
		return nil, fmt.Errorf("set cleared: %w", err)
	}
	return s.GetByID(id)
}

func (s *TransactionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func sumByType(q queryer, matterID int64, txType string) (model.Cents, error) {
	var sum sql.NullInt64
	err := q.QueryRow(
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE matter_id = ? AND type = ?`,
		matterID, txType,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum %s: %w", txType, err)
	}
	return model.Cents(sum.Int64), nil
}

func activeHoldTotal(q queryer, matterID int64) (model.Cents, error) {
	var sum sql.NullInt64
	err := q.QueryRow(
		`SELECT COALESCE(SUM(amount_cents), 0) FROM holds WHERE matter_id = ? AND status = 'active'`,
		matterID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum active holds: %w", err)
	}
	return model.Cents(sum.Int64), nil
}

func availableBalanceTx(q queryer, matterID int64) (model.Cents, error) {
	b, err := matterBalance(q, matterID)
	if err != nil {
		return 0, err
	}
	return b.Available, nil
}

func matterBalance(q queryer, matterID int64) (*model.MatterBalance, error) {
	deposits, err := sumByType(q, matterID, model.TxDeposit)
	if err != nil {
		return nil, err
	}
	interest, err := sumByType(q, matterID, model.TxInterest)
	if err != nil {
		return nil, err
	}
	disbursed, err := sumByType(q, matterID, model.TxDisbursement)
	if err != nil {
		return nil, err
	}
	held, err := activeHoldTotal(q, matterID)
	if err != nil {
		return nil, err
	}

	balance := deposits + interest - disbursed
	return &model.MatterBalance{
		MatterID:  matterID,
		Deposits:  deposits,
		Interest:  interest,
		Disbursed: disbursed,
		Held:      held,
		Balance:   balance,
		Available: balance - held,
	}, nil
}

// MatterBalance computes the derived ledger position for one matter.
func (s *TransactionStore) MatterBalance(matterID int64) (*model.MatterBalance, error) {
	return matterBalance(s.db, matterID)
}

// ClientBalance sums balances across all of a client's matters.
func (s *TransactionStore) ClientBalance(clientID int64) (model.Cents, error) {
	var sum sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(CASE WHEN t.type = 'disbursement' THEN -t.amount_cents ELSE t.amount_cents END), 0)
		 FROM transactions t
		 JOIN matters m ON m.id = t.matter_id
		 WHERE m.client_id = ?`,
		clientID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("client balance: %w", err)
	}
	return model.Cents(sum.Int64), nil
}

// DashboardStats aggregates the organization's trust position in one pass
// per figure.
func (s *TransactionStore) DashboardStats(orgID int64) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}

	var held sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(CASE WHEN type = 'disbursement' THEN -amount_cents ELSE amount_cents END), 0)
		 FROM transactions WHERE org_id = ?`,
		orgID,
	).Scan(&held)
	if err != nil {
		return nil, fmt.Errorf("total held: %w", err)
	}
	stats.TotalHeld = model.Cents(held.Int64)

	var holds sql.NullInt64
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(amount_cents), 0) FROM holds WHERE org_id = ? AND status = 'active'`,
		orgID,
	).Scan(&holds)
	if err != nil {
		return nil, fmt.Errorf("active holds: %w", err)
	}
	stats.ActiveHolds = model.Cents(holds.Int64)
	stats.TotalAvailable = stats.TotalHeld - stats.ActiveHolds

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM clients WHERE org_id = ? AND status = 'active'`, orgID,
	).Scan(&stats.ActiveClients)
	if err != nil {
		return nil, fmt.Errorf("active clients: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM matters WHERE org_id = ? AND status = 'open'`, orgID,
	).Scan(&stats.OpenMatters)
	if err != nil {
		return nil, fmt.Errorf("open matters: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE org_id = ? AND cleared = 0`, orgID,
	).Scan(&stats.Uncleared)
	if err != nil {
		return nil, fmt.Errorf("uncleared count: %w", err)
	}

	return stats, nil
}
