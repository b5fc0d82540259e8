// Package marketclock answers "is the market likely open right now".
// It is a heuristic over the NSE regular session, not an exchange calendar:
// holidays are not accounted for.
package marketclock

import "time"

var ist = time.FixedZone("IST", 5*3600+30*60)

// IsOpen reports whether the NSE regular session (09:15-15:30 IST, Mon-Fri)
// is in progress at the given instant.
func IsOpen(now time.Time) bool {
	t := now.In(ist)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60+15 && minutes <= 15*60+30
}
