package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

const rewardCols = `id, household_id, title, description, point_cost, active, created_at`

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	err := scanner.Scan(&r.ID, &r.HouseholdID, &r.Title, &r.Description, &r.PointCost, &r.Active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RewardStore) Create(householdID int64, title, description string, pointCost int) (*model.Reward, error) {
	if pointCost < 0 {
		return nil, fmt.Errorf("%w: point cost must not be negative", apperr.ErrValidation)
	}
	result, err := s.db.Exec(
		`INSERT INTO rewards (household_id, title, description, point_cost) VALUES (?, ?, ?, ?)`,
		householdID, title, description, pointCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *RewardStore) GetByID(id, householdID int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ? AND household_id = ?`, id, householdID)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) List(householdID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE household_id = ? AND active = 1 ORDER BY point_cost ASC, title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id, householdID int64, title, description string, pointCost int) (*model.Reward, error) {
	if pointCost < 0 {
		return nil, fmt.Errorf("%w: point cost must not be negative", apperr.ErrValidation)
	}
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, point_cost = ? WHERE id = ? AND household_id = ?`,
		title, description, pointCost, id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id, householdID)
}

func (s *RewardStore) Deactivate(id, householdID int64) error {
	_, err := s.db.Exec(`UPDATE rewards SET active = 0 WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("deactivate reward: %w", err)
	}
	return nil
}

// Redeem records a redemption, snapshotting the reward's current cost the
// same way completions snapshot task points.
func (s *RewardStore) Redeem(rewardID, householdID, childID int64) (*model.RewardRedemption, error) {
	reward, err := s.GetByID(rewardID, householdID)
	if err != nil {
		return nil, err
	}
	if reward == nil || !reward.Active {
		return nil, fmt.Errorf("reward %d: %w", rewardID, apperr.ErrNotFound)
	}

	result, err := s.db.Exec(
		`INSERT INTO reward_redemptions (household_id, reward_id, child_id, points_spent) VALUES (?, ?, ?, ?)`,
		householdID, rewardID, childID, reward.PointCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var rd model.RewardRedemption
	err = s.db.QueryRow(
		`SELECT id, household_id, reward_id, child_id, points_spent, redeemed_at FROM reward_redemptions WHERE id = ?`, id,
	).Scan(&rd.ID, &rd.HouseholdID, &rd.RewardID, &rd.ChildID, &rd.PointsSpent, &rd.RedeemedAt)
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return &rd, nil
}

// PointBalances aggregates completion earnings minus redemption spending per
// active child. The engine writes only the earned side; this is the ledger
// view callers read.
func (s *RewardStore) PointBalances(householdID int64) ([]model.PointBalance, error) {
	rows, err := s.db.Query(
		`SELECT ch.id, ch.name,
		        COALESCE((SELECT SUM(tc.points_earned) FROM task_completions tc WHERE tc.child_id = ch.id), 0),
		        COALESCE((SELECT SUM(rr.points_spent) FROM reward_redemptions rr WHERE rr.child_id = ch.id), 0)
		 FROM children ch
		 WHERE ch.household_id = ? AND ch.active = 1
		 ORDER BY ch.sort_order ASC, ch.name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("point balances: %w", err)
	}
	defer rows.Close()

	var balances []model.PointBalance
	for rows.Next() {
		var b model.PointBalance
		if err := rows.Scan(&b.ChildID, &b.ChildName, &b.TotalEarned, &b.TotalSpent); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		b.Balance = b.TotalEarned - b.TotalSpent
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
