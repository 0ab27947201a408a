package store

import (
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

func TestPointBalances(t *testing.T) {
	db := setupTestDB(t)
	hh := seedHousehold(t, db, "Gardner")
	child := seedChild(t, db, hh, "Elanor")
	ts := NewTaskStore(db)
	as := NewAssignmentStore(db)
	rs := NewRewardStore(db)

	task, _ := ts.Create(hh, "Weed garden", "", 10, model.RuleDaily, "", nil)
	as.GenerateForWindow(*task, []int64{child}, date(2026, 3, 2), date(2026, 3, 3))
	assignments, _ := as.List(hh, ListFilter{})
	for _, a := range assignments {
		if _, err := as.Complete(a.ID, hh, time.Now().UTC()); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	reward, err := rs.Create(hh, "Movie night", "", 15)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := rs.Redeem(reward.ID, hh, child); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	balances, err := rs.PointBalances(hh)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("%d balances, want 1", len(balances))
	}
	b := balances[0]
	if b.TotalEarned != 20 || b.TotalSpent != 15 || b.Balance != 5 {
		t.Errorf("balance = %+v, want earned 20 spent 15 balance 5", b)
	}
}

func TestRedeemSnapshotsCost(t *testing.T) {
	db := setupTestDB(t)
	hh := seedHousehold(t, db, "Gardner")
	child := seedChild(t, db, hh, "Elanor")
	rs := NewRewardStore(db)

	reward, _ := rs.Create(hh, "Ice cream", "", 8)
	redemption, err := rs.Redeem(reward.ID, hh, child)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.PointsSpent != 8 {
		t.Errorf("points spent = %d, want 8", redemption.PointsSpent)
	}
}
