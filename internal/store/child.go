package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

// ChildStore is the household child directory. The assignment engine only
// needs Exists and ListActiveIDs; the rest backs the directory CRUD surface.
type ChildStore struct {
	db *sql.DB
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

const childCols = `id, household_id, name, color, avatar_emoji, sort_order, active, created_at, updated_at`

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Name, &c.Color, &c.AvatarEmoji,
		&c.SortOrder, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChildStore) Create(householdID int64, name, color, avatarEmoji string, sortOrder int) (*model.Child, error) {
	result, err := s.db.Exec(
		`INSERT INTO children (household_id, name, color, avatar_emoji, sort_order) VALUES (?, ?, ?, ?, ?)`,
		householdID, name, color, avatarEmoji, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *ChildStore) GetByID(id, householdID int64) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ? AND household_id = ?`, id, householdID)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

// Exists reports whether the child belongs to the household and is active.
func (s *ChildStore) Exists(id, householdID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM children WHERE id = ? AND household_id = ? AND active = 1`, id, householdID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("child exists: %w", err)
	}
	return true, nil
}

func (s *ChildStore) List(householdID int64) ([]model.Child, error) {
	rows, err := s.db.Query(
		`SELECT `+childCols+` FROM children WHERE household_id = ? AND active = 1 ORDER BY sort_order ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

// ListActiveIDs returns the ids of all active children in the household, in
// sort order. Generation for daily and repeating tasks fans out across this.
func (s *ChildStore) ListActiveIDs(householdID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT id FROM children WHERE household_id = ? AND active = 1 ORDER BY sort_order ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active child ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ChildStore) Update(id, householdID int64, name, color, avatarEmoji string, sortOrder int) (*model.Child, error) {
	_, err := s.db.Exec(
		`UPDATE children SET name = ?, color = ?, avatar_emoji = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND household_id = ?`,
		name, color, avatarEmoji, sortOrder, id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	return s.GetByID(id, householdID)
}

// Deactivate soft-deletes a child. History (assignments, completions) stays.
func (s *ChildStore) Deactivate(id, householdID int64) error {
	_, err := s.db.Exec(
		`UPDATE children SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	if err != nil {
		return fmt.Errorf("deactivate child: %w", err)
	}
	return nil
}
