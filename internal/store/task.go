package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/rule"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, household_id, name, description, points, rule_type, rule_config, deadline, active, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var deadline sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Name, &t.Description, &t.Points,
		&t.RuleType, &t.RuleConfig, &deadline, &t.Active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	return &t, nil
}

// Create validates the rule config before inserting, so a malformed rule is a
// client error here and never a silent no-op during generation.
func (s *TaskStore) Create(householdID int64, name, description string, points int, ruleType, ruleConfig string, deadline *time.Time) (*model.Task, error) {
	if points < 0 {
		return nil, fmt.Errorf("%w: points must not be negative", apperr.ErrValidation)
	}
	if _, err := rule.Parse(ruleType, ruleConfig); err != nil {
		return nil, err
	}

	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: deadline.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (household_id, name, description, points, rule_type, rule_config, deadline)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		householdID, name, description, points, ruleType, ruleConfig, dl,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *TaskStore) GetByID(id, householdID int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ? AND household_id = ?`, id, householdID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns the household's active tasks, optionally filtered by rule type.
func (s *TaskStore) List(householdID int64, ruleType string) ([]model.Task, error) {
	query := `SELECT ` + taskCols + ` FROM tasks WHERE household_id = ? AND active = 1`
	args := []any{householdID}
	if ruleType != "" {
		query += ` AND rule_type = ?`
		args = append(args, ruleType)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id, householdID int64, name, description string, points int, ruleType, ruleConfig string, deadline *time.Time) (*model.Task, error) {
	if points < 0 {
		return nil, fmt.Errorf("%w: points must not be negative", apperr.ErrValidation)
	}
	if _, err := rule.Parse(ruleType, ruleConfig); err != nil {
		return nil, err
	}

	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: deadline.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET name = ?, description = ?, points = ?, rule_type = ?, rule_config = ?, deadline = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND household_id = ?`,
		name, description, points, ruleType, ruleConfig, dl, id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id, householdID)
}

// Deactivate is the only delete. The row and its assignment/completion
// history survive so point balances stay correct.
func (s *TaskStore) Deactivate(id, householdID int64) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	if err != nil {
		return fmt.Errorf("deactivate task: %w", err)
	}
	return nil
}
