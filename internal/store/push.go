package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, household_id, child_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanPushSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	var childID sql.NullInt64
	err := scanner.Scan(
		&sub.ID, &sub.HouseholdID, &childID, &sub.Endpoint,
		&sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if childID.Valid {
		sub.ChildID = &childID.Int64
	}
	return &sub, nil
}

// CreateSubscription upserts by endpoint; re-subscribing from the same
// browser refreshes the keys instead of duplicating the row.
func (s *PushStore) CreateSubscription(householdID int64, childID *int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	var cID sql.NullInt64
	if childID != nil {
		cID = sql.NullInt64{Int64: *childID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO push_subscriptions (household_id, child_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		householdID, cID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	id, _ := result.LastInsertId()

	// LastInsertId may be 0 on conflict update; re-query by endpoint
	if id == 0 {
		return s.getByEndpoint(endpoint)
	}

	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_subscriptions WHERE id = ?`, id)
	return scanPushSubscription(row)
}

func (s *PushStore) getByEndpoint(endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err := scanPushSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

// ListForChildren returns subscriptions for the given children plus the
// household's parent devices (subscriptions with no child).
func (s *PushStore) ListForChildren(householdID int64, childIDs []int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushCols+` FROM push_subscriptions WHERE household_id = ?`, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	wanted := make(map[int64]bool, len(childIDs))
	for _, id := range childIDs {
		wanted[id] = true
	}

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanPushSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		if sub.ChildID == nil || wanted[*sub.ChildID] {
			subs = append(subs, *sub)
		}
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteByEndpoint(householdID int64, endpoint string) error {
	_, err := s.db.Exec(
		`DELETE FROM push_subscriptions WHERE household_id = ? AND endpoint = ?`, householdID, endpoint,
	)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}
