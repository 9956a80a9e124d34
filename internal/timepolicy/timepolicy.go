// Package timepolicy holds the pure deadline, restricted-window and week
// arithmetic. Every function takes the current instant explicitly; the
// location of that instant is the local zone all results are expressed in.
package timepolicy

import (
	"time"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/models"
)

// ParseTimeOfDay parses a time string in the standard format (HH:MM) and
// returns the offset from midnight. Unparseable input yields fallback.
func ParseTimeOfDay(timeStr string, fallback time.Duration) time.Duration {
	t, err := time.Parse(constants.TimeFormat, timeStr)
	if err != nil {
		return fallback
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

// startOfDay returns midnight of now's calendar date in now's location.
func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// atTimeOfDay combines day's date with a wall-clock offset. Building the
// instant from its fields keeps the wall clock right across DST changes.
func atTimeOfDay(day time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

func timeOfDay(now time.Time) time.Duration {
	return time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second +
		time.Duration(now.Nanosecond())
}

// IsRestricted reports whether now's time of day falls in
// [RestrictedStart, RestrictedEnd). The window must not wrap midnight; a
// window whose start is not before its end never matches.
func IsRestricted(now time.Time, cfg *models.Config) bool {
	start := ParseTimeOfDay(cfg.RestrictedStart, 2*time.Hour)
	end := ParseTimeOfDay(cfg.RestrictedEnd, 8*time.Hour)

	t := timeOfDay(now)
	return t >= start && t < end
}

// ComputeBaseDeadline returns today's configured deadline when now is
// strictly before it, otherwise tomorrow's. The result is always in
// (now, now+24h].
func ComputeBaseDeadline(now time.Time, cfg *models.Config) time.Time {
	offset := ParseTimeOfDay(cfg.DailyDeadline, 2*time.Hour)

	today := atTimeOfDay(now, offset)
	if now.Before(today) {
		return today
	}
	return atTimeOfDay(startOfDay(now).AddDate(0, 0, 1), offset)
}

// WeekStart returns midnight of the Monday of now's week.
func WeekStart(now time.Time) time.Time {
	// Weekday: Sunday=0 ... Saturday=6; shift so Monday=0 and Sunday=6.
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	return startOfDay(now).AddDate(0, 0, -daysSinceMonday)
}

// WeekStartKey returns WeekStart formatted as YYYY-MM-DD.
func WeekStartKey(now time.Time) string {
	return WeekStart(now).Format(constants.DateFormat)
}
