package assign

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPlanDailyFansOutPerChild(t *testing.T) {
	task := model.Task{ID: 1, HouseholdID: 1, RuleType: model.RuleDaily}
	slots, err := Plan(task, []int64{5, 6}, date(2026, 3, 2), date(2026, 3, 4))
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	// 3 days x 2 children
	if len(slots) != 6 {
		t.Fatalf("got %d slots, want 6", len(slots))
	}
	if slots[0].Date != "2026-03-02" || *slots[0].ChildID != 5 {
		t.Errorf("slots[0] = %s/%v, want 2026-03-02/5", slots[0].Date, slots[0].ChildID)
	}
}

func TestPlanRepeatingSkipsOffDays(t *testing.T) {
	task := model.Task{ID: 1, RuleType: model.RuleRepeating, RuleConfig: `{"repeat_days":[1,3,5]}`}
	// Mon Mar 2 through Sun Mar 8
	slots, err := Plan(task, []int64{9}, date(2026, 3, 2), date(2026, 3, 8))
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	want := []string{"2026-03-02", "2026-03-04", "2026-03-06"}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(slots), len(want))
	}
	for i, w := range want {
		if slots[i].Date != w {
			t.Errorf("slots[%d].Date = %s, want %s", i, slots[i].Date, w)
		}
	}
}

func TestPlanRotationAlternatesWeekly(t *testing.T) {
	task := model.Task{
		ID:         1,
		RuleType:   model.RuleWeeklyRotation,
		RuleConfig: `{"rotation_type":"alternating","assigned_children":[11,22]}`,
	}
	// ISO weeks 10 and 11
	slots, err := Plan(task, nil, date(2026, 3, 2), date(2026, 3, 15))
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if len(slots) != 14 {
		t.Fatalf("got %d slots, want 14", len(slots))
	}
	week10 := *slots[0].ChildID
	for i := 0; i < 7; i++ {
		if *slots[i].ChildID != week10 {
			t.Errorf("week 10 day %d assigned to %d, want %d", i, *slots[i].ChildID, week10)
		}
	}
	for i := 7; i < 14; i++ {
		if *slots[i].ChildID == week10 {
			t.Errorf("week 11 day %d still assigned to %d", i-7, week10)
		}
	}
}

func TestPlanSingleIsEmpty(t *testing.T) {
	task := model.Task{ID: 1, RuleType: model.RuleSingle}
	slots, err := Plan(task, []int64{1}, date(2026, 3, 2), date(2026, 3, 31))
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("single task planned %d slots, want 0", len(slots))
	}
}

func TestPlanRejectsInvertedWindow(t *testing.T) {
	task := model.Task{ID: 1, RuleType: model.RuleDaily}
	_, err := Plan(task, []int64{1}, date(2026, 3, 4), date(2026, 3, 2))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestPlanSurfacesBadRule(t *testing.T) {
	task := model.Task{ID: 1, RuleType: model.RuleRepeating, RuleConfig: `{"repeat_days":[]}`}
	_, err := Plan(task, []int64{1}, date(2026, 3, 2), date(2026, 3, 2))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}
