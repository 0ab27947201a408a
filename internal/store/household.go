package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

const householdCols = `id, name, created_at, updated_at`

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *HouseholdStore) Create(name string) (*model.Household, error) {
	result, err := s.db.Exec(`INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) List() ([]model.Household, error) {
	rows, err := s.db.Query(`SELECT ` + householdCols + ` FROM households ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}

func (s *HouseholdStore) Rename(id int64, name string) (*model.Household, error) {
	_, err := s.db.Exec(`UPDATE households SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("rename household: %w", err)
	}
	return s.GetByID(id)
}
