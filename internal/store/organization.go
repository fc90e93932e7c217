package store

import (
	"database/sql"
	"fmt"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

type OrganizationStore struct {
	db *sql.DB
}

func NewOrganizationStore(db *sql.DB) *OrganizationStore {
	return &OrganizationStore{db: db}
}

func scanOrganization(scanner interface{ Scan(...any) error }) (*model.Organization, error) {
	var o model.Organization
	err := scanner.Scan(&o.ID, &o.Name, &o.Slug, &o.Logo, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const orgCols = `id, name, slug, logo, created_at`

func (s *OrganizationStore) Create(name, slug string, logo *string) (*model.Organization, error) {
	result, err := s.db.Exec(
		`INSERT INTO organizations (name, slug, logo) VALUES (?, ?, ?)`,
		name, slug, logo,
	)
	if err != nil {
		return nil, fmt.Errorf("insert organization: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *OrganizationStore) GetByID(id int64) (*model.Organization, error) {
	row := s.db.QueryRow(`SELECT `+orgCols+` FROM organizations WHERE id = ?`, id)
	o, err := scanOrganization(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return o, nil
}

func (s *OrganizationStore) GetBySlug(slug string) (*model.Organization, error) {
	row := s.db.QueryRow(`SELECT `+orgCols+` FROM organizations WHERE slug = ?`, slug)
	o, err := scanOrganization(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization by slug: %w", err)
	}
	return o, nil
}

// ListForUser returns the organizations the user is a member of, oldest
// membership first.
func (s *OrganizationStore) ListForUser(userID int64) ([]model.Organization, error) {
	rows, err := s.db.Query(
		`SELECT o.id, o.name, o.slug, o.logo, o.created_at
		 FROM organizations o
		 JOIN members m ON m.organization_id = o.id
		 WHERE m.user_id = ?
		 ORDER BY m.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list organizations for user: %w", err)
	}
	defer rows.Close()

	var orgs []model.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, *o)
	}
	return orgs, rows.Err()
}

func (s *OrganizationStore) AddMember(orgID, userID int64, role string) (*model.Member, error) {
	result, err := s.db.Exec(
		`INSERT INTO members (organization_id, user_id, role) VALUES (?, ?, ?)`,
		orgID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(
		`SELECT id, user_id, organization_id, role, created_at FROM members WHERE id = ?`, id)
	var m model.Member
	if err := row.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (s *OrganizationStore) GetMember(orgID, userID int64) (*model.Member, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, organization_id, role, created_at
		 FROM members WHERE organization_id = ? AND user_id = ?`,
		orgID, userID,
	)
	var m model.Member
	err := row.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (s *OrganizationStore) ListMembers(orgID int64) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, organization_id, role, created_at
		 FROM members WHERE organization_id = ? ORDER BY created_at`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
