package rule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
)

type RotationType string

const (
	RotationAlternating RotationType = "alternating"
	RotationOddEvenWeek RotationType = "odd_even_week"
)

// Rule is a task's recurrence rule: the rule type plus the variant payload
// decoded from the task's rule_config JSON. Exactly one variant's fields are
// meaningful for a given Type.
type Rule struct {
	Type string

	// repeating
	RepeatDays []int `json:"repeat_days,omitempty"`

	// weekly_rotation
	RotationType     RotationType `json:"rotation_type,omitempty"`
	AssignedChildren []int64      `json:"assigned_children,omitempty"`
}

// Occurrence is the result of evaluating a rule against a date. ChildID is
// set only for rotation rules; for daily/repeating rules the caller decides
// which children receive the occurrence.
type Occurrence struct {
	Occurs  bool
	ChildID *int64
}

// Parse decodes and validates a rule_config payload for the given rule type.
// Malformed configuration fails here, at task create/update time, so batch
// generation never has to cope with a bad rule.
func Parse(ruleType, config string) (Rule, error) {
	r := Rule{Type: ruleType}
	if config != "" {
		if err := json.Unmarshal([]byte(config), &r); err != nil {
			return Rule{}, fmt.Errorf("%w: rule config is not valid JSON: %v", apperr.ErrValidation, err)
		}
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks the variant payload against its rule type.
func (r Rule) Validate() error {
	switch r.Type {
	case model.RuleDaily, model.RuleSingle:
		return nil

	case model.RuleRepeating:
		if len(r.RepeatDays) == 0 {
			return fmt.Errorf("%w: repeating rule needs at least one repeat day", apperr.ErrValidation)
		}
		for _, d := range r.RepeatDays {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: repeat day %d out of range 0-6", apperr.ErrValidation, d)
			}
		}
		return nil

	case model.RuleWeeklyRotation:
		switch r.RotationType {
		case RotationAlternating:
			if len(r.AssignedChildren) == 0 {
				return fmt.Errorf("%w: rotation rule needs at least one assigned child", apperr.ErrValidation)
			}
		case RotationOddEvenWeek:
			// The odd/even formula only makes sense for exactly two children.
			if len(r.AssignedChildren) != 2 {
				return fmt.Errorf("%w: odd_even_week rotation needs exactly 2 assigned children, got %d",
					apperr.ErrValidation, len(r.AssignedChildren))
			}
		default:
			return fmt.Errorf("%w: unknown rotation type %q", apperr.ErrValidation, r.RotationType)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown rule type %q", apperr.ErrValidation, r.Type)
}

// OccursOn reports whether the rule produces an occurrence on the given date
// and, for rotation rules, which child's turn it is. Single tasks never occur
// here; their lifecycle is driven by offers and responses.
func (r Rule) OccursOn(date time.Time) Occurrence {
	switch r.Type {
	case model.RuleDaily:
		return Occurrence{Occurs: true}

	case model.RuleRepeating:
		wd := int(date.Weekday())
		for _, d := range r.RepeatDays {
			if d == wd {
				return Occurrence{Occurs: true}
			}
		}
		return Occurrence{}

	case model.RuleWeeklyRotation:
		_, week := date.ISOWeek()
		var idx int
		switch r.RotationType {
		case RotationOddEvenWeek:
			if week%2 == 0 {
				idx = 0
			} else {
				idx = 1
			}
		default: // alternating
			idx = week % len(r.AssignedChildren)
		}
		child := r.AssignedChildren[idx]
		return Occurrence{Occurs: true, ChildID: &child}

	case model.RuleSingle:
		return Occurrence{}
	}
	return Occurrence{}
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Type {
	case model.RuleDaily:
		return "Every day"
	case model.RuleRepeating:
		names := make([]string, 0, len(r.RepeatDays))
		for _, d := range r.RepeatDays {
			names = append(names, time.Weekday(d).String()[:3])
		}
		return "Repeats on " + strings.Join(names, ", ")
	case model.RuleWeeklyRotation:
		if r.RotationType == RotationOddEvenWeek {
			return "Rotates by odd/even week"
		}
		return fmt.Sprintf("Rotates weekly between %d children", len(r.AssignedChildren))
	case model.RuleSingle:
		return "One-time task"
	}
	return ""
}
