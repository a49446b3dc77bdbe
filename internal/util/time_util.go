package util

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const layout = "2006-01-02"

// all ledger keys are trading-calendar dates in New York time.
// arithmetic is done on the YYYY-MM-DD form, never on raw UTC
// timestamps, so a late-evening trade doesn't land on tomorrow
var easternLocation = loadEastern()

func loadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// EasternDate returns the trading-calendar date of t
func EasternDate(t time.Time) string {
	return t.In(easternLocation).Format(layout)
}

func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", date, err)
	}
	return t, nil
}

func IsValidDate(date string) bool {
	_, err := time.Parse(layout, date)
	return err == nil
}

// AddDays shifts a YYYY-MM-DD date by n calendar days
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(layout), nil
}

// MustAddDays is AddDays for dates that were already validated
func MustAddDays(date string, n int) string {
	out, err := AddDays(date, n)
	if err != nil {
		panic(err)
	}
	return out
}

// DateRange lists every calendar date from start through end, inclusive.
// empty if end < start
func DateRange(start, end string) ([]string, error) {
	s, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for t := s; !t.After(e); t = t.AddDate(0, 0, 1) {
		out = append(out, t.Format(layout))
	}
	return out, nil
}

// MonthKey returns YYYY-MM for a YYYY-MM-DD date
func MonthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// AddMonths shifts a date by n months, clamping to the end of the month
// so 03-31 minus one month is 02-28/29 rather than 03-03
func AddMonths(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	lastDay := firstOfMonth.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfMonth.Year(), firstOfMonth.Month(), day, 0, 0, 0, 0, time.UTC).Format(layout), nil
}
