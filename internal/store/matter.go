package store

import (
	"database/sql"
	"fmt"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

type MatterStore struct {
	db *sql.DB
}

func NewMatterStore(db *sql.DB) *MatterStore {
	return &MatterStore{db: db}
}

func scanMatter(scanner interface{ Scan(...any) error }) (*model.Matter, error) {
	var m model.Matter
	err := scanner.Scan(&m.ID, &m.OrgID, &m.ClientID, &m.Name, &m.MatterNumber, &m.Status,
		&m.OpenedAt, &m.ClosedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const matterCols = `id, org_id, client_id, name, matter_number, status, opened_at, closed_at, created_at, updated_at`

func (s *MatterStore) Create(orgID, clientID int64, name, matterNumber string) (*model.Matter, error) {
	result, err := s.db.Exec(
		`INSERT INTO matters (org_id, client_id, name, matter_number) VALUES (?, ?, ?, ?)`,
		orgID, clientID, name, matterNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("insert matter: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MatterStore) GetByID(id int64) (*model.Matter, error) {
	row := s.db.QueryRow(`SELECT `+matterCols+` FROM matters WHERE id = ?`, id)
	m, err := scanMatter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get matter: %w", err)
	}
	return m, nil
}

func (s *MatterStore) List(orgID int64) ([]model.Matter, error) {
	return s.query(`SELECT `+matterCols+` FROM matters WHERE org_id = ? ORDER BY opened_at DESC`, orgID)
}

func (s *MatterStore) ListByClient(clientID int64) ([]model.Matter, error) {
	return s.query(`SELECT `+matterCols+` FROM matters WHERE client_id = ? ORDER BY opened_at DESC`, clientID)
}

func (s *MatterStore) query(q string, args ...any) ([]model.Matter, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list matters: %w", err)
	}
	defer rows.Close()

	var matters []model.Matter
	for rows.Next() {
		m, err := scanMatter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan matter: %w", err)
		}
		matters = append(matters, *m)
	}
	return matters, rows.Err()
}

func (s *MatterStore) Update(id int64, name, matterNumber string) (*model.Matter, error) {
	_, err := s.db.Exec(
		`UPDATE matters SET name = ?, matter_number = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, matterNumber, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update matter: %w", err)
	}
	return s.GetByID(id)
}

// Close marks a matter closed. The ledger rows stay; closed matters are
// read-only by handler convention.
func (s *MatterStore) Close(id int64) (*model.Matter, error) {
	_, err := s.db.Exec(
		`UPDATE matters SET status = 'closed', closed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'open'`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("close matter: %w", err)
	}
	return s.GetByID(id)
}

func (s *MatterStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete matter: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM transactions WHERE matter_id = ?`, id); err != nil {
		return fmt.Errorf("delete matter transactions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM holds WHERE matter_id = ?`, id); err != nil {
		return fmt.Errorf("delete matter holds: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM matters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete matter: %w", err)
	}
	return tx.Commit()
}
