package store

import (
	"database/sql"
	"fmt"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

type ClientStore struct {
	db *sql.DB
}

func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

func scanClient(scanner interface{ Scan(...any) error }) (*model.Client, error) {
	var c model.Client
	err := scanner.Scan(&c.ID, &c.OrgID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const clientCols = `id, org_id, name, email, phone, address, status, created_at, updated_at`

func (s *ClientStore) Create(orgID int64, name, email, phone, address string) (*model.Client, error) {
	result, err := s.db.Exec(
		`INSERT INTO clients (org_id, name, email, phone, address) VALUES (?, ?, ?, ?, ?)`,
		orgID, name, email, phone, address,
	)
	if err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ClientStore) GetByID(id int64) (*model.Client, error) {
	row := s.db.QueryRow(`SELECT `+clientCols+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (s *ClientStore) List(orgID int64) ([]model.Client, error) {
	rows, err := s.db.Query(`SELECT `+clientCols+` FROM clients WHERE org_id = ? ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (s *ClientStore) Update(id int64, name, email, phone, address, status string) (*model.Client, error) {
	_, err := s.db.Exec(
		`UPDATE clients SET name = ?, email = ?, phone = ?, address = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, email, phone, address, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a client and everything under it (matters, transactions,
// holds) in one transaction.
func (s *ClientStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete client: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM transactions WHERE matter_id IN (SELECT id FROM matters WHERE client_id = ?)`, id); err != nil {
		return fmt.Errorf("delete client transactions: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM holds WHERE matter_id IN (SELECT id FROM matters WHERE client_id = ?)`, id); err != nil {
		return fmt.Errorf("delete client holds: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM matters WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("delete client matters: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM clients WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return tx.Commit()
}
