package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PointCost   int       `json:"point_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type RewardRedemption struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	RewardID    int64     `json:"reward_id"`
	ChildID     int64     `json:"child_id"`
	PointsSpent int       `json:"points_spent"`
	RedeemedAt  time.Time `json:"redeemed_at"`
}

// PointBalance aggregates a child's completion earnings against redemption
// spending. The engine only ever writes the earned side.
type PointBalance struct {
	ChildID     int64  `json:"child_id"`
	ChildName   string `json:"child_name"`
	TotalEarned int    `json:"total_earned"`
	TotalSpent  int    `json:"total_spent"`
	Balance     int    `json:"balance"`
}
