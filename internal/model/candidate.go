package model

import "time"

// Response values for TaskResponse.Response. The absence of a row means
// "no response yet", which is distinct from either value.
const (
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

// TaskCandidate marks a child as offered a single task. Membership only.
type TaskCandidate struct {
	TaskID    int64     `json:"task_id"`
	ChildID   int64     `json:"child_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskResponse is a candidate's answer to an offer. At most one per
// (task, child); re-responding overwrites.
type TaskResponse struct {
	TaskID      int64     `json:"task_id"`
	ChildID     int64     `json:"child_id"`
	Response    string    `json:"response"`
	RespondedAt time.Time `json:"responded_at"`
}

// OfferedTask is a single task as seen in the open/failed/expired views,
// joined with response counts for presentation.
type OfferedTask struct {
	Task
	CandidateCount int `json:"candidate_count"`
	DeclineCount   int `json:"decline_count"`
}
