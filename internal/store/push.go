package store

import (
	"database/sql"
	"fmt"

	"github.com/dadam-app/dadam/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

const subscriptionCols = `id, user_id, endpoint, p256dh_key, auth_key, created_at`

// Subscribe registers a push endpoint for the user. Re-subscribing the same
// endpoint replaces its keys rather than erroring.
func (s *PushStore) Subscribe(userID int64, endpoint, p256dh, auth string) (*model.PushSubscription, error) {
	result, err := s.db.Exec(
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key) VALUES (?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key`,
		userID, endpoint, p256dh, auth,
	)
	if err != nil {
		return nil, fmt.Errorf("insert push subscription: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	sub, err := s.GetByID(id)
	if err != nil || sub != nil {
		return sub, err
	}
	// Upsert of an existing endpoint: LastInsertId is not the row's id.
	row := s.db.QueryRow(`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err = scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return sub, nil
}

func (s *PushStore) GetByID(id int64) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByUser(userID int64) ([]model.PushSubscription, error) {
	return s.list(`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY id ASC`, userID)
}

// ListByFamilyCode returns the subscriptions of every member of the family.
func (s *PushStore) ListByFamilyCode(code string) ([]model.PushSubscription, error) {
	if code == "" {
		return nil, nil
	}
	return s.list(
		`SELECT ps.id, ps.user_id, ps.endpoint, ps.p256dh_key, ps.auth_key, ps.created_at
		 FROM push_subscriptions ps
		 JOIN users u ON u.id = ps.user_id
		 WHERE u.family_code = ?
		 ORDER BY ps.id ASC`,
		code,
	)
}

func (s *PushStore) list(query string, args ...any) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ? AND user_id = ?`, id, userID)
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

// MarkSent records that a reminder for the schedule went out on the given day.
// ErrDuplicate means another scheduler tick already sent it.
func (s *PushStore) MarkSent(scheduleID int64, date string) error {
	_, err := s.db.Exec(
		`INSERT INTO push_sent_log (schedule_id, sent_date) VALUES (?, ?)`,
		scheduleID, date,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert push sent log: %w", err)
	}
	return nil
}

func (s *PushStore) WasSent(scheduleID int64, date string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM push_sent_log WHERE schedule_id = ? AND sent_date = ?`,
		scheduleID, date,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check push sent log: %w", err)
	}
	return count > 0, nil
}
