package utils

import "time"

func NowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MonthBounds returns the first instant of t's calendar month and the
// first instant of the next month, for half-open range queries.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 1, 0)
}

// AnonymizeEmail masks an address for logs: jo***@example.com.
func AnonymizeEmail(email string) string {
	at := -1
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at > 1 {
		return email[:2] + "***@" + email[at+1:]
	}
	return "***@***"
}
