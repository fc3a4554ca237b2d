package roundup

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of weekCommencing
const DateLayout = "2006-01-02"

// ParseWeekCommencing parses a YYYY-MM-DD Monday as midnight UTC.
func ParseWeekCommencing(s string) (time.Time, error) {
	week, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	if week.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("%w: %s is a %s", ErrInvalidWeek, s, week.Weekday())
	}
	return week, nil
}

// NormalizeWeek truncates t to midnight UTC and checks it is a Monday.
func NormalizeWeek(t time.Time) (time.Time, error) {
	t = t.UTC()
	week := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if week.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("%w: %s is a %s", ErrInvalidWeek, week.Format(DateLayout), week.Weekday())
	}
	return week, nil
}

// WeekBounds returns [monday 00:00, next monday 00:00) in UTC.
func WeekBounds(week time.Time) (time.Time, time.Time) {
	start := time.Date(week.Year(), week.Month(), week.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 7)
}

// LockKey scopes the admission lock to one account and week.
func LockKey(accountID string, week time.Time) string {
	return fmt.Sprintf("roundup-lock:%s:%s", accountID, week.Format(DateLayout))
}
