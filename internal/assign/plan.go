// Package assign holds the pure planning logic that turns a task's
// recurrence rule and a date window into the (date, child) slots to persist.
// It never touches the database or the system clock; callers pass the window
// explicitly so generation stays deterministic and testable.
package assign

import (
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/rule"
)

// DateFormat is the canonical storage format for assignment dates.
const DateFormat = "2006-01-02"

// Slot is one planned assignment: a task occurrence on a date for a child.
type Slot struct {
	Date    string // YYYY-MM-DD
	ChildID *int64
}

// Plan evaluates the task's rule across [start, end] inclusive and returns
// the slots to upsert. For daily and repeating rules every child in childIDs
// gets a slot per occurrence; rotation rules pick their own child and ignore
// childIDs. Single tasks plan nothing.
func Plan(task model.Task, childIDs []int64, start, end time.Time) ([]Slot, error) {
	if task.RuleType == model.RuleSingle {
		return nil, nil
	}

	r, err := rule.Parse(task.RuleType, task.RuleConfig)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", task.ID, err)
	}

	start = startOfDay(start)
	end = startOfDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: window end %s before start %s",
			apperr.ErrValidation, end.Format(DateFormat), start.Format(DateFormat))
	}

	var slots []Slot
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		occ := r.OccursOn(d)
		if !occ.Occurs {
			continue
		}
		date := d.Format(DateFormat)
		if occ.ChildID != nil {
			slots = append(slots, Slot{Date: date, ChildID: occ.ChildID})
			continue
		}
		for _, id := range childIDs {
			child := id
			slots = append(slots, Slot{Date: date, ChildID: &child})
		}
	}
	return slots, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
