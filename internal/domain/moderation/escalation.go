package moderation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Step is one rung of the escalation ladder
type Step struct {
	MinCount     int        `json:"min_count"`
	ActionType   ActionType `json:"action_type"`
	DurationDays int        `json:"duration_days,omitempty"`
}

// Ladder maps a user's prior-action count to the next action. Selection is
// by highest MinCount less than or equal to the count, so the ladder only
// climbs: more infractions never produce a lighter action.
type Ladder struct {
	steps []Step
}

// NewLadder builds a ladder from explicit steps
func NewLadder(steps []Step) (*Ladder, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("escalation ladder is empty")
	}

	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinCount < sorted[j].MinCount })

	if sorted[0].MinCount != 0 {
		return nil, fmt.Errorf("escalation ladder must start at count 0")
	}

	// Enforce monotonicity: severity never drops and ban durations never
	// shrink as the count grows.
	prevBan := false
	prevDuration := 0
	for i, st := range sorted {
		if i > 0 && st.MinCount == sorted[i-1].MinCount {
			return nil, fmt.Errorf("duplicate ladder threshold %d", st.MinCount)
		}
		switch st.ActionType {
		case ActionWarning:
			if prevBan {
				return nil, fmt.Errorf("ladder steps down from ban to warning at count %d", st.MinCount)
			}
		case ActionBan:
			if st.DurationDays < prevDuration {
				return nil, fmt.Errorf("ban duration shrinks at count %d", st.MinCount)
			}
			prevBan = true
			prevDuration = st.DurationDays
		default:
			return nil, fmt.Errorf("invalid ladder action %q", st.ActionType)
		}
	}

	return &Ladder{steps: sorted}, nil
}

// ParseLadder parses "minCount:action[:durationDays]" comma-separated
// entries, e.g. "0:warning,1:warning,2:ban:3,3:ban:14,4:ban:90".
func ParseLadder(s string) (*Ladder, error) {
	var steps []Step
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid ladder entry %q", entry)
		}
		minCount, err := strconv.Atoi(parts[0])
		if err != nil || minCount < 0 {
			return nil, fmt.Errorf("invalid ladder threshold %q", parts[0])
		}
		step := Step{MinCount: minCount, ActionType: ActionType(parts[1])}
		if len(parts) == 3 {
			d, err := strconv.Atoi(parts[2])
			if err != nil || d < 0 {
				return nil, fmt.Errorf("invalid ladder duration %q", parts[2])
			}
			step.DurationDays = d
		}
		steps = append(steps, step)
	}
	return NewLadder(steps)
}

// DefaultLadder returns the baseline escalation policy
func DefaultLadder() *Ladder {
	l, err := NewLadder([]Step{
		{MinCount: 0, ActionType: ActionWarning},
		{MinCount: 1, ActionType: ActionWarning},
		{MinCount: 2, ActionType: ActionBan, DurationDays: 3},
		{MinCount: 3, ActionType: ActionBan, DurationDays: 14},
		{MinCount: 4, ActionType: ActionBan, DurationDays: 90},
	})
	if err != nil {
		panic(err)
	}
	return l
}

// Next returns the action for a user with the given prior-action count.
// Counts past the top rung stay at the ceiling.
func (l *Ladder) Next(priorCount int) Step {
	selected := l.steps[0]
	for _, st := range l.steps {
		if st.MinCount <= priorCount {
			selected = st
		}
	}
	return selected
}

// Ceiling returns the top rung
func (l *Ladder) Ceiling() Step {
	return l.steps[len(l.steps)-1]
}
