package core

import (
	"testing"
	"time"
)

func TestParseMonthKey(t *testing.T) {
	cases := []struct {
		key   string
		year  int
		month int
		ok    bool
	}{
		{"2024-01", 2024, 1, true},
		{"2024-12", 2024, 12, true},
		{"2024-13", 0, 0, false},
		{"2024-00", 0, 0, false},
		{"2024-3", 0, 0, false},
		{"2024-003", 0, 0, false},
		{"24-03", 0, 0, false},
		{"2024", 0, 0, false},
		{"abcd-01", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		year, month, err := ParseMonthKey(tc.key)
		if tc.ok {
			if err != nil || year != tc.year || month != tc.month {
				t.Fatalf("%q: got (%d, %d, %v)", tc.key, year, month, err)
			}
		} else if err == nil {
			t.Fatalf("%q: expected error", tc.key)
		}
	}
}

func TestMonthKeyNavigation(t *testing.T) {
	next, err := NextMonthKey("2024-12")
	if err != nil || next != "2025-01" {
		t.Fatalf("next of 2024-12 = %q (err=%v)", next, err)
	}
	prev, err := PrevMonthKey("2025-01")
	if err != nil || prev != "2024-12" {
		t.Fatalf("prev of 2025-01 = %q (err=%v)", prev, err)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		key  string
		days int
	}{
		{"2024-02", 29}, // leap year
		{"2023-02", 28},
		{"2024-04", 30},
		{"2024-01", 31},
	}
	for _, tc := range cases {
		days, err := DaysInMonth(tc.key)
		if err != nil || days != tc.days {
			t.Fatalf("%q: got %d (err=%v), want %d", tc.key, days, err, tc.days)
		}
	}
}

func TestMonthKeyOf(t *testing.T) {
	got := MonthKeyOf(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	if got != "2024-03" {
		t.Fatalf("got %q", got)
	}
}
