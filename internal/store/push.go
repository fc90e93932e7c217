package store

import (
	"database/sql"
	"fmt"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

// Subscribe upserts a device subscription keyed by endpoint.
func (s *PushStore) Subscribe(orgID int64, endpoint, p256dh, auth string) (*model.PushSubscription, error) {
	result, err := s.db.Exec(
		`INSERT INTO push_subscriptions (org_id, endpoint, p256dh_key, auth_key) VALUES (?, ?, ?, ?)
		 ON CONFLICT (endpoint) DO UPDATE SET org_id = excluded.org_id, p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key`,
		orgID, endpoint, p256dh, auth,
	)
	if err != nil {
		return nil, fmt.Errorf("insert push subscription: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(
		`SELECT id, org_id, endpoint, p256dh_key, auth_key, created_at
		 FROM push_subscriptions WHERE id = ?`, id)
	var sub model.PushSubscription
	if err := row.Scan(&sub.ID, &sub.OrgID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt); err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return &sub, nil
}

func (s *PushStore) ListByOrg(orgID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT id, org_id, endpoint, p256dh_key, auth_key, created_at
		 FROM push_subscriptions WHERE org_id = ?`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.OrgID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) ListOrgIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT DISTINCT org_id FROM push_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("list push org ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan org id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PushStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

// WasSent reports whether a notification for the (org, type, ref) tuple was
// already delivered.
func (s *PushStore) WasSent(orgID int64, notifType, refID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sent_notifications WHERE org_id = ? AND type = ? AND ref_id = ?`,
		orgID, notifType, refID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check sent notification: %w", err)
	}
	return n > 0, nil
}

func (s *PushStore) MarkSent(orgID int64, notifType, refID string) error {
	_, err := s.db.Exec(
		`INSERT INTO sent_notifications (org_id, type, ref_id) VALUES (?, ?, ?)
		 ON CONFLICT (org_id, type, ref_id) DO NOTHING`,
		orgID, notifType, refID,
	)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}
