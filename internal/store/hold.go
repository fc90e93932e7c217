package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

type HoldStore struct {
	db *sql.DB
}

func NewHoldStore(db *sql.DB) *HoldStore {
	return &HoldStore{db: db}
}

func scanHold(scanner interface{ Scan(...any) error }) (*model.Hold, error) {
	var h model.Hold
	err := scanner.Scan(&h.ID, &h.OrgID, &h.MatterID, &h.AmountCents, &h.Reason, &h.Status,
		&h.ReleaseAt, &h.ReleasedAt, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const holdCols = `id, org_id, matter_id, amount_cents, reason, status, release_at, released_at, created_at`

// Create places a hold on matter funds. The hold plus existing active holds
// may not exceed the matter balance; checked in the same transaction as the
// insert.
func (s *HoldStore) Create(orgID, matterID int64, amount model.Cents, reason string, releaseAt *time.Time) (*model.Hold, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin create hold: %w", err)
	}
	defer tx.Rollback()

	available, err := availableBalanceTx(tx, matterID)
	if err != nil {
		return nil, err
	}
	if amount > available {
		return nil, ErrInsufficientFunds
	}

	result, err := tx.Exec(
		`INSERT INTO holds (org_id, matter_id, amount_cents, reason, release_at) VALUES (?, ?, ?, ?, ?)`,
		orgID, matterID, amount, reason, releaseAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert hold: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit hold: %w", err)
	}
	return s.GetByID(id)
}

func (s *HoldStore) GetByID(id int64) (*model.Hold, error) {
	row := s.db.QueryRow(`SELECT `+holdCols+` FROM holds WHERE id = ?`, id)
	h, err := scanHold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (s *HoldStore) ListByMatter(matterID int64) ([]model.Hold, error) {
	return s.query(`SELECT `+holdCols+` FROM holds WHERE matter_id = ? ORDER BY created_at`, matterID)
}

func (s *HoldStore) ListByOrg(orgID int64) ([]model.Hold, error) {
	return s.query(`SELECT `+holdCols+` FROM holds WHERE org_id = ? ORDER BY created_at DESC`, orgID)
}

// ListDueForRelease returns active holds whose scheduled release falls at or
// before the given cutoff. Scheduler input.
func (s *HoldStore) ListDueForRelease(cutoff time.Time) ([]model.Hold, error) {
	return s.query(
		`SELECT `+holdCols+` FROM holds WHERE status = 'active' AND release_at IS NOT NULL AND release_at <= ? ORDER BY release_at`,
		cutoff.UTC(),
	)
}

func (s *HoldStore) query(q string, args ...any) ([]model.Hold, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	defer rows.Close()

	var holds []model.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, *h)
	}
	return holds, rows.Err()
}

// Release frees a hold. Idempotent: releasing a released hold is a no-op.
func (s *HoldStore) Release(id int64) (*model.Hold, error) {
	_, err := s.db.Exec(
		`UPDATE holds SET status = 'released', released_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'active'`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("release hold: %w", err)
	}
	return s.GetByID(id)
}

func (s *HoldStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM holds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete hold: %w", err)
	}
	return nil
}
