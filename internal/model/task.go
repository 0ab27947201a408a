package model

import "time"

// Rule type constants for Task.RuleType.
const (
	RuleDaily          = "daily"
	RuleRepeating      = "repeating"
	RuleWeeklyRotation = "weekly_rotation"
	RuleSingle         = "single"
)

type Task struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	RuleType    string     `json:"rule_type"`
	RuleConfig  string     `json:"rule_config"`
	Deadline    *time.Time `json:"deadline"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
