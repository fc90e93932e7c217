package store

import (
	"database/sql"
	"fmt"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

type ReportHistoryStore struct {
	db *sql.DB
}

func NewReportHistoryStore(db *sql.DB) *ReportHistoryStore {
	return &ReportHistoryStore{db: db}
}

func (s *ReportHistoryStore) Record(orgID int64, kind, format, filename string, generatedBy int64) (*model.ReportHistory, error) {
	result, err := s.db.Exec(
		`INSERT INTO report_history (org_id, kind, format, filename, generated_by)
		 VALUES (?, ?, ?, ?, ?)`,
		orgID, kind, format, filename, generatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert report history: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, org_id, kind, format, filename, generated_by, generated_at
		 FROM report_history WHERE id = ?`, id)
	var r model.ReportHistory
	if err := row.Scan(&r.ID, &r.OrgID, &r.Kind, &r.Format, &r.Filename, &r.GeneratedBy, &r.GeneratedAt); err != nil {
		return nil, fmt.Errorf("get report history: %w", err)
	}
	return &r, nil
}

func (s *ReportHistoryStore) List(orgID int64, limit int) ([]model.ReportHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, org_id, kind, format, filename, generated_by, generated_at
		 FROM report_history WHERE org_id = ? ORDER BY generated_at DESC, id DESC LIMIT ?`,
		orgID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list report history: %w", err)
	}
	defer rows.Close()

	var reports []model.ReportHistory
	for rows.Next() {
		var r model.ReportHistory
		if err := rows.Scan(&r.ID, &r.OrgID, &r.Kind, &r.Format, &r.Filename, &r.GeneratedBy, &r.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan report history: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
