package repository

import "time"

// ReportingDay returns the UTC calendar day (YYYY-MM-DD) a timestamp is
// archived under.
func ReportingDay(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

func ReportingDayNow() string {
	return ReportingDay(time.Now())
}
