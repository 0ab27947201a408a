package store

import (
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

// Availability views. These are derived classifications computed at query
// time; nothing here is ever persisted as a status. A task can be both
// expired and failed.

const offeredTaskCols = `t.id, t.household_id, t.name, t.description, t.points, t.rule_type, t.rule_config, t.deadline, t.active, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM task_candidates c WHERE c.task_id = t.id) AS candidate_count,
	(SELECT COUNT(*) FROM task_responses r WHERE r.task_id = t.id AND r.response = 'declined') AS decline_count`

// Most time-pressured first: nearest deadline, then newest.
const offeredTaskOrder = ` ORDER BY t.deadline IS NULL, t.deadline ASC, t.created_at DESC`

const unclaimed = `NOT EXISTS (SELECT 1 FROM task_assignments a WHERE a.task_id = t.id)`

func (s *CandidateStore) listOffered(query string, args ...any) ([]model.OfferedTask, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list offered tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.OfferedTask
	for rows.Next() {
		var t model.OfferedTask
		var deadline *time.Time
		err := rows.Scan(
			&t.ID, &t.HouseholdID, &t.Name, &t.Description, &t.Points,
			&t.RuleType, &t.RuleConfig, &deadline, &t.Active,
			&t.CreatedAt, &t.UpdatedAt, &t.CandidateCount, &t.DeclineCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan offered task: %w", err)
		}
		t.Deadline = deadline
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// OpenForChild lists the single tasks the child can still claim: the child
// is a candidate, nobody has claimed the task, and the child has not
// declined (or has undone a decline).
func (s *CandidateStore) OpenForChild(householdID, childID int64) ([]model.OfferedTask, error) {
	return s.listOffered(
		`SELECT `+offeredTaskCols+` FROM tasks t
		 JOIN task_candidates c ON c.task_id = t.id AND c.child_id = ?
		 WHERE t.household_id = ? AND t.rule_type = 'single' AND t.active = 1
		   AND `+unclaimed+`
		   AND NOT EXISTS (
		       SELECT 1 FROM task_responses r
		       WHERE r.task_id = t.id AND r.child_id = ? AND r.response = 'declined'
		   )`+offeredTaskOrder,
		childID, householdID, childID,
	)
}

// Failed lists unclaimed single tasks where every candidate declined. A task
// with no candidates never fails; it is merely unoffered.
func (s *CandidateStore) Failed(householdID int64) ([]model.OfferedTask, error) {
	return s.listOffered(
		`SELECT `+offeredTaskCols+` FROM tasks t
		 WHERE t.household_id = ? AND t.rule_type = 'single' AND t.active = 1
		   AND `+unclaimed+`
		   AND (SELECT COUNT(*) FROM task_candidates c WHERE c.task_id = t.id) > 0
		   AND (SELECT COUNT(*) FROM task_responses r WHERE r.task_id = t.id AND r.response = 'declined')
		     = (SELECT COUNT(*) FROM task_candidates c WHERE c.task_id = t.id)`+offeredTaskOrder,
		householdID,
	)
}

// Expired lists unclaimed single tasks whose deadline has passed. The
// reference time is a parameter, never the system clock.
func (s *CandidateStore) Expired(householdID int64, now time.Time) ([]model.OfferedTask, error) {
	return s.listOffered(
		`SELECT `+offeredTaskCols+` FROM tasks t
		 WHERE t.household_id = ? AND t.rule_type = 'single' AND t.active = 1
		   AND `+unclaimed+`
		   AND t.deadline IS NOT NULL AND t.deadline < ?`+offeredTaskOrder,
		householdID, now.UTC(),
	)
}
