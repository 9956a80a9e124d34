package timepolicy

import (
	"testing"
	"time"

	"github.com/julianstephens/lightsout/internal/models"
)

func at(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
}

func TestComputeBaseDeadline(t *testing.T) {
	cfg := models.DefaultConfig() // deadline 02:00

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "evening rolls to next calendar day",
			now:  at(2026, 10, 15, 21, 0),
			want: at(2026, 10, 16, 2, 0),
		},
		{
			name: "just after midnight uses today",
			now:  at(2026, 10, 16, 0, 30),
			want: at(2026, 10, 16, 2, 0),
		},
		{
			name: "exactly at deadline uses tomorrow",
			now:  at(2026, 10, 16, 2, 0),
			want: at(2026, 10, 17, 2, 0),
		},
		{
			name: "one minute before deadline",
			now:  at(2026, 10, 16, 1, 59),
			want: at(2026, 10, 16, 2, 0),
		},
		{
			name: "month boundary",
			now:  at(2026, 10, 31, 23, 0),
			want: at(2026, 11, 1, 2, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBaseDeadline(tt.now, &cfg)
			if !got.Equal(tt.want) {
				t.Errorf("ComputeBaseDeadline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeBaseDeadlineWindow(t *testing.T) {
	cfg := models.DefaultConfig()
	start := at(2026, 10, 12, 0, 0)

	for _, deadline := range []string{"02:00", "23:30", "00:00", "12:15"} {
		cfg.DailyDeadline = deadline
		for i := 0; i < 7*24*4; i++ {
			now := start.Add(time.Duration(i) * 15 * time.Minute).Add(7 * time.Second)
			got := ComputeBaseDeadline(now, &cfg)
			if !got.After(now) {
				t.Fatalf("deadline %s: ComputeBaseDeadline(%v) = %v, not after now", deadline, now, got)
			}
			if got.Sub(now) > 24*time.Hour {
				t.Fatalf("deadline %s: ComputeBaseDeadline(%v) = %v, more than 24h ahead", deadline, now, got)
			}
			todays := time.Date(now.Year(), now.Month(), now.Day(), got.Hour(), got.Minute(), 0, 0, now.Location())
			if now.Before(todays) != got.Equal(todays) {
				t.Fatalf("deadline %s: now=%v got=%v, today's instant %v", deadline, now, got, todays)
			}
		}
	}
}

func TestComputeBaseDeadlineFallback(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.DailyDeadline = "not-a-time"

	got := ComputeBaseDeadline(at(2026, 10, 15, 21, 0), &cfg)
	if want := at(2026, 10, 16, 2, 0); !got.Equal(want) {
		t.Errorf("ComputeBaseDeadline() with bad config = %v, want fallback %v", got, want)
	}
}

func TestIsRestricted(t *testing.T) {
	cfg := models.DefaultConfig() // 02:00–08:00

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "start is inclusive", now: at(2026, 10, 16, 2, 0), want: true},
		{name: "inside", now: at(2026, 10, 16, 3, 0), want: true},
		{name: "last minute", now: at(2026, 10, 16, 7, 59), want: true},
		{name: "end is exclusive", now: at(2026, 10, 16, 8, 0), want: false},
		{name: "evening", now: at(2026, 10, 15, 21, 0), want: false},
		{name: "before start", now: at(2026, 10, 16, 1, 59), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRestricted(tt.now, &cfg); got != tt.want {
				t.Errorf("IsRestricted(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestIsRestrictedWrappingWindowNeverMatches(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.RestrictedStart = "23:00"
	cfg.RestrictedEnd = "06:00"

	for _, h := range []int{0, 3, 12, 23} {
		if IsRestricted(at(2026, 10, 16, h, 30), &cfg) {
			t.Errorf("wrapping window matched at %02d:30", h)
		}
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "monday maps to itself", now: at(2026, 10, 12, 9, 0), want: "2026-10-12"},
		{name: "thursday", now: at(2026, 10, 15, 21, 0), want: "2026-10-12"},
		{name: "sunday maps six days back", now: at(2026, 10, 18, 23, 59), want: "2026-10-12"},
		{name: "across month", now: at(2026, 11, 1, 1, 0), want: "2026-10-26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStartKey(tt.now); got != tt.want {
				t.Errorf("WeekStartKey() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWeekStartProperty(t *testing.T) {
	start := at(2026, 1, 1, 0, 0)
	for i := 0; i < 400; i++ {
		now := start.Add(time.Duration(i) * 23 * time.Hour)
		ws := WeekStart(now)
		if ws.Weekday() != time.Monday {
			t.Fatalf("WeekStart(%v) = %v is a %v", now, ws, ws.Weekday())
		}
		if ws.After(now) {
			t.Fatalf("WeekStart(%v) = %v is after now", now, ws)
		}
		if now.Sub(ws) >= 7*24*time.Hour {
			t.Fatalf("WeekStart(%v) = %v is more than 6 days back", now, ws)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	if got := ParseTimeOfDay("23:45", 0); got != 23*time.Hour+45*time.Minute {
		t.Errorf("ParseTimeOfDay(23:45) = %v", got)
	}
	if got := ParseTimeOfDay("bogus", time.Hour); got != time.Hour {
		t.Errorf("ParseTimeOfDay(bogus) = %v, want fallback", got)
	}
}
