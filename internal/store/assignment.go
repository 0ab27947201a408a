package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/assign"
	"github.com/dukerupert/bywater/internal/model"
)

type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

const assignmentCols = `id, household_id, task_id, child_id, date, status, created_at, updated_at`

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var childID sql.NullInt64

	err := scanner.Scan(
		&a.ID, &a.HouseholdID, &a.TaskID, &childID, &a.Date,
		&a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if childID.Valid {
		a.ChildID = &childID.Int64
	}
	return &a, nil
}

// GenerateForWindow plans the task's occurrences across [start, end] and
// upserts them as pending assignments in a single multi-row statement with
// ON CONFLICT DO NOTHING. Re-running for an overlapping window, or two runs
// racing each other, never duplicates a row: the uniqueness constraint on
// (task_id, child_id, date) is the only arbiter. Returns the number of rows
// actually inserted.
func (s *AssignmentStore) GenerateForWindow(task model.Task, childIDs []int64, start, end time.Time) (int64, error) {
	if !task.Active {
		return 0, fmt.Errorf("task %d is inactive: %w", task.ID, apperr.ErrNotFound)
	}
	slots, err := assign.Plan(task, childIDs, start, end)
	if err != nil {
		return 0, err
	}
	if len(slots) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO task_assignments (household_id, task_id, child_id, date) VALUES `)
	args := make([]any, 0, len(slots)*4)
	for i, slot := range slots {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		var childID sql.NullInt64
		if slot.ChildID != nil {
			childID = sql.NullInt64{Int64: *slot.ChildID, Valid: true}
		}
		args = append(args, task.HouseholdID, task.ID, childID, slot.Date)
	}
	sb.WriteString(` ON CONFLICT(task_id, child_id, date) DO NOTHING`)

	result, err := s.db.Exec(sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("generate assignments: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *AssignmentStore) GetByID(id, householdID int64) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM task_assignments WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// ListFilter narrows List. Zero values mean "no filter"; household scoping
// is always applied by the caller-supplied household id.
type ListFilter struct {
	ChildID  *int64
	TaskID   *int64
	Status   string
	FromDate string // YYYY-MM-DD inclusive
	ToDate   string // YYYY-MM-DD inclusive
}

func (s *AssignmentStore) List(householdID int64, f ListFilter) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentCols + ` FROM task_assignments WHERE household_id = ?`
	args := []any{householdID}

	if f.ChildID != nil {
		query += ` AND child_id = ?`
		args = append(args, *f.ChildID)
	}
	if f.TaskID != nil {
		query += ` AND task_id = ?`
		args = append(args, *f.TaskID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.FromDate != "" {
		query += ` AND date >= ?`
		args = append(args, f.FromDate)
	}
	if f.ToDate != "" {
		query += ` AND date <= ?`
		args = append(args, f.ToDate)
	}
	query += ` ORDER BY date ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure from
// the sqlite driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Reassign moves a still-pending assignment to another child. A completed or
// missing assignment reports conflict/not-found so retries stay quiet.
func (s *AssignmentStore) Reassign(id, householdID, newChildID int64) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`UPDATE task_assignments SET child_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND household_id = ? AND status = ?`,
		newChildID, id, householdID, model.StatusPending,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("child %d already has this task on that date: %w", newChildID, apperr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("reassign: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		existing, err := s.GetByID(id, householdID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("assignment %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("assignment %d is %s: %w", id, existing.Status, apperr.ErrConflict)
	}
	return s.GetByID(id, householdID)
}

// Complete flips a pending assignment to completed and records the immutable
// completion row in one transaction. The status flip is a single-statement
// compare-and-set, so two racing completions produce exactly one completion
// row; the loser gets ErrConflict.
func (s *AssignmentStore) Complete(id, householdID int64, now time.Time) (*model.TaskCompletion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE task_assignments SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND household_id = ? AND status = ?`,
		model.StatusCompleted, id, householdID, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var status string
		err := tx.QueryRow(
			`SELECT status FROM task_assignments WHERE id = ? AND household_id = ?`, id, householdID,
		).Scan(&status)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("assignment %d: %w", id, apperr.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("classify failed complete: %w", err)
		}
		return nil, fmt.Errorf("assignment %d already %s: %w", id, status, apperr.ErrConflict)
	}

	// Snapshot the task's current point value and the holding child.
	var childID sql.NullInt64
	var points int
	err = tx.QueryRow(
		`SELECT a.child_id, t.points FROM task_assignments a
		 JOIN tasks t ON t.id = a.task_id
		 WHERE a.id = ?`, id,
	).Scan(&childID, &points)
	if err != nil {
		return nil, fmt.Errorf("read completion snapshot: %w", err)
	}
	if !childID.Valid {
		// Unassigned slots must be reassigned to a child before completion.
		return nil, fmt.Errorf("%w: assignment %d has no child", apperr.ErrValidation, id)
	}

	res, err := tx.Exec(
		`INSERT INTO task_completions (household_id, assignment_id, child_id, points_earned, completed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		householdID, id, childID.Int64, points, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	completionID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return s.GetCompletion(completionID, householdID)
}

const completionCols = `id, household_id, assignment_id, child_id, points_earned, completed_at`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	err := scanner.Scan(&c.ID, &c.HouseholdID, &c.AssignmentID, &c.ChildID, &c.PointsEarned, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *AssignmentStore) GetCompletion(id, householdID int64) (*model.TaskCompletion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM task_completions WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// CompletionForAssignment returns the completion row for an assignment, or
// ErrIntegrity if the assignment is completed but the row is missing. That
// state means the completion transaction was violated and is a bug.
func (s *AssignmentStore) CompletionForAssignment(assignmentID, householdID int64) (*model.TaskCompletion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM task_completions WHERE assignment_id = ? AND household_id = ?`,
		assignmentID, householdID,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		a, gerr := s.GetByID(assignmentID, householdID)
		if gerr != nil {
			return nil, gerr
		}
		if a != nil && a.Status == model.StatusCompleted {
			return nil, fmt.Errorf("%w: assignment %d completed with no completion row", apperr.ErrIntegrity, assignmentID)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion for assignment: %w", err)
	}
	return c, nil
}

func (s *AssignmentStore) ListCompletions(householdID int64, childID *int64, from, to time.Time) ([]model.TaskCompletion, error) {
	query := `SELECT ` + completionCols + ` FROM task_completions WHERE household_id = ? AND completed_at >= ? AND completed_at < ?`
	args := []any{householdID, from.UTC(), to.UTC()}
	if childID != nil {
		query += ` AND child_id = ?`
		args = append(args, *childID)
	}
	query += ` ORDER BY completed_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// Delete removes an assignment outright, e.g. during task deactivation
// cleanup. The engine itself never deletes.
func (s *AssignmentStore) Delete(id, householdID int64) error {
	_, err := s.db.Exec(`DELETE FROM task_assignments WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
