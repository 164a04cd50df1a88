package attendance

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"

	// DefaultClock is the start time used when none has been configured.
	DefaultClock = "16:05"
)

// WallTime interprets date (YYYY-MM-DD) and clock (HH:MM) as wall time in
// loc and returns that instant. The zone of the process or of whoever typed
// the values plays no part. A clock reading inside a daylight-saving gap is
// resolved the way time.Date resolves it.
func WallTime(date, clock string, loc *time.Location) (time.Time, error) {
	var verr ValidationError
	d, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		verr.add("date", "expected YYYY-MM-DD")
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		verr.add("time", "expected HH:MM")
	}
	if err := verr.orNil(); err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), nil
}

// ParseClock parses an HH:MM clock reading.
func ParseClock(clock string) (hour, minute int, err error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil {
		return 0, 0, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	return t.Hour(), t.Minute(), nil
}

// FormatClock renders hour and minute as HH:MM.
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// NextSunday returns the first Sunday strictly after now, in loc, at the
// given clock reading. On a Sunday it returns the following week's.
func NextSunday(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	days := (7 - int(local.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	d := local.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc)
}
