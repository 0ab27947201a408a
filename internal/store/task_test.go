package store

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
)

func TestTaskCRUD(t *testing.T) {
	db := setupTestDB(t)
	hh := seedHousehold(t, db, "Gardner")
	ts := NewTaskStore(db)

	task, err := ts.Create(hh, "Dishes", "after dinner", 5, model.RuleDaily, "", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Name != "Dishes" || task.Points != 5 || !task.Active {
		t.Errorf("unexpected task: %+v", task)
	}

	got, err := ts.GetByID(task.ID, hh)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got == nil || got.ID != task.ID {
		t.Fatalf("get returned %+v", got)
	}

	updated, err := ts.Update(task.ID, hh, "Dishes", "after every meal", 8, model.RuleDaily, "", nil)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Points != 8 {
		t.Errorf("points = %d, want 8", updated.Points)
	}
}

func TestTaskCreateValidatesRule(t *testing.T) {
	db := setupTestDB(t)
	hh := seedHousehold(t, db, "Gardner")
	ts := NewTaskStore(db)

	tests := []struct {
		name     string
		ruleType string
		config   string
	}{
		{"repeating with no days", model.RuleRepeating, `{"repeat_days":[]}`},
		{"rotation with no children", model.RuleWeeklyRotation, `{"rotation_type":"alternating","assigned_children":[]}`},
		{"odd_even with three children", model.RuleWeeklyRotation, `{"rotation_type":"odd_even_week","assigned_children":[1,2,3]}`},
		{"unknown rule type", "fortnightly", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Create(hh, "Broken", "", 1, tt.ruleType, tt.config, nil)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
		})
	}
}

func TestTaskNegativePointsRejected(t *testing.T) {
	db := setupTestDB(t)
	hh := seedHousehold(t, db, "Gardner")
	ts := NewTaskStore(db)

	_, err := ts.Create(hh, "Bad", "", -1, model.RuleDaily, "", nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestTaskDeactivateHidesFromList(t *testing.T) {
	db := setupTestDB(t)
	hh := seedHousehold(t, db, "Gardner")
	ts := NewTaskStore(db)

	task, err := ts.Create(hh, "Rake leaves", "", 10, model.RuleDaily, "", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := ts.Deactivate(task.ID, hh); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	tasks, err := ts.List(hh, "")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	for _, got := range tasks {
		if got.ID == task.ID {
			t.Error("deactivated task still listed")
		}
	}

	// The row survives for history.
	got, err := ts.GetByID(task.ID, hh)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got == nil || got.Active {
		t.Errorf("deactivated task = %+v, want inactive row", got)
	}
}

func TestTaskHouseholdScoping(t *testing.T) {
	db := setupTestDB(t)
	hh1 := seedHousehold(t, db, "Gardner")
	hh2 := seedHousehold(t, db, "Cotton")
	ts := NewTaskStore(db)

	task, err := ts.Create(hh1, "Sweep porch", "", 2, model.RuleDaily, "", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := ts.GetByID(task.ID, hh2)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got != nil {
		t.Error("task visible across households")
	}
}

func TestTaskDeadlineRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	hh := seedHousehold(t, db, "Gardner")
	ts := NewTaskStore(db)

	deadline := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)
	task, err := ts.Create(hh, "Fix fence", "", 20, model.RuleSingle, "", &deadline)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Deadline == nil || !task.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", task.Deadline, deadline)
	}
}
