package scheduler

import (
	"fmt"
	"slices"
	"time"
)

// EntryKind distinguishes warning timers from the shutdown timer.
type EntryKind int

const (
	KindWarning EntryKind = iota
	KindShutdown
)

func (k EntryKind) String() string {
	switch k {
	case KindWarning:
		return "warning"
	case KindShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// Entry is one timer of a plan.
type Entry struct {
	Kind          EntryKind
	MinutesBefore int // zero for the shutdown entry
	At            time.Time
}

// Name is a stable label for logs and job names.
func (e Entry) Name() string {
	if e.Kind == KindShutdown {
		return "shutdown"
	}
	return fmt.Sprintf("warning-%dm", e.MinutesBefore)
}

// Plan is the timer set for one effective deadline.
type Plan struct {
	Deadline time.Time
	Entries  []Entry
}

// BuildPlan lays out one warning per distinct minutesBefore value, earliest
// first, followed by the shutdown at deadline. Entries not strictly after now
// are dropped.
func BuildPlan(now, deadline time.Time, minutesBefore []int) Plan {
	plan := Plan{Deadline: deadline}

	minutes := slices.Clone(minutesBefore)
	slices.Sort(minutes)
	minutes = slices.Compact(minutes)
	slices.Reverse(minutes)

	for _, m := range minutes {
		if m <= 0 {
			continue
		}
		at := deadline.Add(-time.Duration(m) * time.Minute)
		if !at.After(now) {
			continue
		}
		plan.Entries = append(plan.Entries, Entry{Kind: KindWarning, MinutesBefore: m, At: at})
	}
	if deadline.After(now) {
		plan.Entries = append(plan.Entries, Entry{Kind: KindShutdown, At: deadline})
	}
	return plan
}
