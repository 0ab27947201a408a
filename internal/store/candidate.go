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

// CandidateStore runs the marketplace workflow for single tasks: offering a
// task to a set of children, recording their accept/decline responses, and
// creating the claiming assignment when someone accepts first.
type CandidateStore struct {
	db *sql.DB
}

func NewCandidateStore(db *sql.DB) *CandidateStore {
	return &CandidateStore{db: db}
}

// singleTask loads the task and checks it is an active single task in the
// household.
func (s *CandidateStore) singleTask(taskID, householdID int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ? AND household_id = ?`, taskID, householdID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", taskID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t.RuleType != model.RuleSingle {
		return nil, fmt.Errorf("%w: task %d is %s, only single tasks take candidates", apperr.ErrValidation, taskID, t.RuleType)
	}
	if !t.Active {
		return nil, fmt.Errorf("task %d is inactive: %w", taskID, apperr.ErrNotFound)
	}
	return t, nil
}

// OfferTo registers the children as candidates for the task. Duplicate offers
// are ignored, so re-offering a wider or identical set is safe.
func (s *CandidateStore) OfferTo(taskID, householdID int64, childIDs []int64) error {
	if len(childIDs) == 0 {
		return fmt.Errorf("%w: no children to offer to", apperr.ErrValidation)
	}
	if _, err := s.singleTask(taskID, householdID); err != nil {
		return err
	}

	for _, childID := range childIDs {
		var one int
		err := s.db.QueryRow(
			`SELECT 1 FROM children WHERE id = ? AND household_id = ? AND active = 1`, childID, householdID,
		).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("child %d: %w", childID, apperr.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check child: %w", err)
		}
	}

	var sb strings.Builder
	sb.WriteString(`INSERT OR IGNORE INTO task_candidates (task_id, child_id) VALUES `)
	args := make([]any, 0, len(childIDs)*2)
	for i, childID := range childIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?)")
		args = append(args, taskID, childID)
	}

	if _, err := s.db.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("offer task: %w", err)
	}
	return nil
}

// Candidates lists the children offered the task.
func (s *CandidateStore) Candidates(taskID, householdID int64) ([]model.TaskCandidate, error) {
	if _, err := s.singleTask(taskID, householdID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT task_id, child_id, created_at FROM task_candidates WHERE task_id = ? ORDER BY child_id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.TaskCandidate
	for rows.Next() {
		var c model.TaskCandidate
		if err := rows.Scan(&c.TaskID, &c.ChildID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Responses lists the recorded responses for a task.
func (s *CandidateStore) Responses(taskID, householdID int64) ([]model.TaskResponse, error) {
	if _, err := s.singleTask(taskID, householdID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT task_id, child_id, response, responded_at FROM task_responses WHERE task_id = ? ORDER BY responded_at ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []model.TaskResponse
	for rows.Next() {
		var r model.TaskResponse
		if err := rows.Scan(&r.TaskID, &r.ChildID, &r.Response, &r.RespondedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// Respond records a candidate's accept or decline. Re-responding overwrites
// the prior answer. An accept claims the task: the pending assignment is
// created in the same transaction that stores the response, and the response
// upsert is issued first so the transaction holds the write lock before the
// claim check runs. A racing acceptor therefore either sees the winner's
// assignment and gets ErrConflict, or fails to commit.
func (s *CandidateStore) Respond(taskID, householdID, childID int64, response string, now time.Time) error {
	if response != model.ResponseAccepted && response != model.ResponseDeclined {
		return fmt.Errorf("%w: response must be accepted or declined, got %q", apperr.ErrValidation, response)
	}
	if _, err := s.singleTask(taskID, householdID); err != nil {
		return err
	}

	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM task_candidates WHERE task_id = ? AND child_id = ?`, taskID, childID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("child %d is not a candidate for task %d: %w", childID, taskID, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check candidate: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO task_responses (task_id, child_id, response, responded_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(task_id, child_id) DO UPDATE SET response = excluded.response, responded_at = excluded.responded_at`,
		taskID, childID, response, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}

	if response == model.ResponseDeclined {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit response: %w", err)
		}
		return nil
	}

	// First accept wins. Any assignment, pending or completed, is a claim.
	var claimed int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM task_assignments WHERE task_id = ?`, taskID,
	).Scan(&claimed)
	if err != nil {
		return fmt.Errorf("check claim: %w", err)
	}
	if claimed > 0 {
		return fmt.Errorf("task %d already claimed: %w", taskID, apperr.ErrConflict)
	}

	_, err = tx.Exec(
		`INSERT INTO task_assignments (household_id, task_id, child_id, date) VALUES (?, ?, ?, ?)`,
		householdID, taskID, childID, now.UTC().Format(assign.DateFormat),
	)
	if err != nil {
		return fmt.Errorf("create claiming assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accept: %w", err)
	}
	return nil
}

// Undo deletes the child's response, returning them to "no response". It
// deliberately leaves any assignment created by a prior accept in place:
// unclaiming is an explicit assignment delete, not a response undo.
func (s *CandidateStore) Undo(taskID, householdID, childID int64) error {
	if _, err := s.singleTask(taskID, householdID); err != nil {
		return err
	}

	result, err := s.db.Exec(
		`DELETE FROM task_responses WHERE task_id = ? AND child_id = ?`, taskID, childID,
	)
	if err != nil {
		return fmt.Errorf("undo response: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no response from child %d on task %d: %w", childID, taskID, apperr.ErrNotFound)
	}
	return nil
}
