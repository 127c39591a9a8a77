package syncer

import (
	"fmt"
	"time"
)

// FormatDate renders a booking date the way the Rapports API expects it.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatHours converts a worklog duration to HH:MM. Seconds are floored to
// whole minutes; nothing is rounded up.
func FormatHours(seconds int) string {
	totalMinutes := seconds / 60
	return fmt.Sprintf("%02d:%02d", totalMinutes/60, totalMinutes%60)
}
