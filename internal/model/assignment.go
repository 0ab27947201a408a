package model

import "time"

// Assignment status values. Only terminal states are persisted; "missed"
// and "expired" are derived at query time, never stored.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Assignment is one task occurrence on a calendar date, optionally held by a
// child. A nil ChildID is an unassigned slot awaiting reassignment.
type Assignment struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	TaskID      int64     `json:"task_id"`
	ChildID     *int64    `json:"child_id"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskCompletion is the immutable record produced when an assignment is
// completed. PointsEarned snapshots the task's point value at completion
// time so later edits to the task never rewrite history.
type TaskCompletion struct {
	ID           int64     `json:"id"`
	HouseholdID  int64     `json:"household_id"`
	AssignmentID int64     `json:"assignment_id"`
	ChildID      int64     `json:"child_id"`
	PointsEarned int       `json:"points_earned"`
	CompletedAt  time.Time `json:"completed_at"`
}
