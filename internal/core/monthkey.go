package core

import (
	"strconv"
	"strings"
	"time"
)

// Month keys are canonical "YYYY-MM" strings. Every bucket in
// BudgetData.MonthlyData is keyed by one.

// MonthKeyOf returns the month key for a point in time.
func MonthKeyOf(t time.Time) string {
	return t.Format("2006-01")
}

// ParseMonthKey splits a "YYYY-MM" key into year and month. Only the
// canonical zero-padded form is accepted; "2024-3" is not a valid key
// and must not create a bucket distinct from "2024-03".
func ParseMonthKey(key string) (year, month int, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return 0, 0, ErrInvalidMonthKey
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return 0, 0, ErrInvalidMonthKey
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, ErrInvalidMonthKey
	}
	return year, month, nil
}

// FirstDayOf returns the first day of the keyed month at midnight UTC.
func FirstDayOf(key string) (time.Time, error) {
	year, month, err := ParseMonthKey(key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// PrevMonthKey returns the key of the month before key.
func PrevMonthKey(key string) (string, error) {
	first, err := FirstDayOf(key)
	if err != nil {
		return "", err
	}
	return MonthKeyOf(first.AddDate(0, -1, 0)), nil
}

// NextMonthKey returns the key of the month after key.
func NextMonthKey(key string) (string, error) {
	first, err := FirstDayOf(key)
	if err != nil {
		return "", err
	}
	return MonthKeyOf(first.AddDate(0, 1, 0)), nil
}

// DaysInMonth returns the number of calendar days in the keyed month.
func DaysInMonth(key string) (int, error) {
	year, month, err := ParseMonthKey(key)
	if err != nil {
		return 0, err
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day(), nil
}

// MonthDisplay renders a key as "January 2025" for UI surfaces.
func MonthDisplay(key string) string {
	first, err := FirstDayOf(key)
	if err != nil {
		return key
	}
	return first.Format("January 2006")
}
