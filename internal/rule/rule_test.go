package rule

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
)

func TestParseDaily(t *testing.T) {
	r, err := Parse(model.RuleDaily, "")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if r.Type != model.RuleDaily {
		t.Errorf("Type = %q, want daily", r.Type)
	}
}

func TestParseRepeating(t *testing.T) {
	r, err := Parse(model.RuleRepeating, `{"repeat_days":[1,3,5]}`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []int{1, 3, 5}
	if len(r.RepeatDays) != 3 {
		t.Fatalf("RepeatDays len = %d, want 3", len(r.RepeatDays))
	}
	for i, d := range r.RepeatDays {
		if d != want[i] {
			t.Errorf("RepeatDays[%d] = %d, want %d", i, d, want[i])
		}
	}
}

func TestParseRotation(t *testing.T) {
	r, err := Parse(model.RuleWeeklyRotation, `{"rotation_type":"alternating","assigned_children":[4,7,9]}`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if r.RotationType != RotationAlternating {
		t.Errorf("RotationType = %q, want alternating", r.RotationType)
	}
	if len(r.AssignedChildren) != 3 {
		t.Errorf("AssignedChildren len = %d, want 3", len(r.AssignedChildren))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		ruleType string
		config   string
	}{
		{"unknown type", "hourly", ""},
		{"bad json", model.RuleRepeating, `{`},
		{"repeating no days", model.RuleRepeating, `{"repeat_days":[]}`},
		{"repeating day out of range", model.RuleRepeating, `{"repeat_days":[7]}`},
		{"rotation no children", model.RuleWeeklyRotation, `{"rotation_type":"alternating","assigned_children":[]}`},
		{"rotation unknown type", model.RuleWeeklyRotation, `{"rotation_type":"monthly","assigned_children":[1,2]}`},
		{"odd_even one child", model.RuleWeeklyRotation, `{"rotation_type":"odd_even_week","assigned_children":[1]}`},
		{"odd_even three children", model.RuleWeeklyRotation, `{"rotation_type":"odd_even_week","assigned_children":[1,2,3]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.ruleType, tt.config)
			if err == nil {
				t.Fatalf("Parse(%q, %q) should fail", tt.ruleType, tt.config)
			}
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("error %v is not a validation error", err)
			}
		})
	}
}

func TestDailyOccursEveryDay(t *testing.T) {
	r := Rule{Type: model.RuleDaily}
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		d := start.AddDate(0, 0, i)
		occ := r.OccursOn(d)
		if !occ.Occurs {
			t.Errorf("daily rule should occur on %s", d.Format("2006-01-02"))
		}
		if occ.ChildID != nil {
			t.Errorf("daily rule should not pick a child")
		}
	}
}

func TestRepeatingOccursOnlyOnRepeatDays(t *testing.T) {
	r := Rule{Type: model.RuleRepeating, RepeatDays: []int{1, 3, 5}} // Mon, Wed, Fri
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)            // a Sunday
	for i := 0; i < 28; i++ {
		d := start.AddDate(0, 0, i)
		wd := int(d.Weekday())
		want := wd == 1 || wd == 3 || wd == 5
		if got := r.OccursOn(d).Occurs; got != want {
			t.Errorf("OccursOn(%s, weekday %d) = %v, want %v", d.Format("2006-01-02"), wd, got, want)
		}
	}
}

func TestAlternatingRotationFairness(t *testing.T) {
	// Across any N consecutive weeks, each child is picked exactly once.
	children := []int64{10, 20, 30}
	r := Rule{Type: model.RuleWeeklyRotation, RotationType: RotationAlternating, AssignedChildren: children}

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // Monday, ISO week 2
	picks := make(map[int64]int)
	for w := 0; w < len(children); w++ {
		occ := r.OccursOn(start.AddDate(0, 0, 7*w))
		if !occ.Occurs || occ.ChildID == nil {
			t.Fatalf("rotation must occur with a child on week offset %d", w)
		}
		picks[*occ.ChildID]++
	}
	for _, c := range children {
		if picks[c] != 1 {
			t.Errorf("child %d picked %d times across %d weeks, want 1", c, picks[c], len(children))
		}
	}
}

func TestRotationStableWithinWeek(t *testing.T) {
	r := Rule{Type: model.RuleWeeklyRotation, RotationType: RotationAlternating, AssignedChildren: []int64{1, 2}}
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	first := r.OccursOn(monday)
	for i := 1; i < 7; i++ {
		occ := r.OccursOn(monday.AddDate(0, 0, i))
		if *occ.ChildID != *first.ChildID {
			t.Errorf("rotation child changed mid-week on day %d", i)
		}
	}
	next := r.OccursOn(monday.AddDate(0, 0, 7))
	if *next.ChildID == *first.ChildID {
		t.Error("rotation child should change between consecutive weeks")
	}
}

func TestOddEvenWeekRotation(t *testing.T) {
	r := Rule{Type: model.RuleWeeklyRotation, RotationType: RotationOddEvenWeek, AssignedChildren: []int64{100, 200}}

	evenWeek := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // ISO week 10
	oddWeek := evenWeek.AddDate(0, 0, 7)                    // ISO week 11

	if got := r.OccursOn(evenWeek); *got.ChildID != 100 {
		t.Errorf("even week child = %d, want 100", *got.ChildID)
	}
	if got := r.OccursOn(oddWeek); *got.ChildID != 200 {
		t.Errorf("odd week child = %d, want 200", *got.ChildID)
	}
}

func TestSingleNeverOccurs(t *testing.T) {
	r := Rule{Type: model.RuleSingle}
	d := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		if r.OccursOn(d.AddDate(0, 0, i)).Occurs {
			t.Fatal("single tasks must never occur via the rule evaluator")
		}
	}
}
