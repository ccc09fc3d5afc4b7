package checkin

import (
	"testing"
	"time"
)

func TestQuarterOf(t *testing.T) {
	cases := []struct {
		month   time.Month
		quarter int
	}{
		{time.January, 1}, {time.March, 1},
		{time.April, 2}, {time.June, 2},
		{time.July, 3}, {time.September, 3},
		{time.October, 4}, {time.December, 4},
	}
	for _, tc := range cases {
		q, year := QuarterOf(time.Date(2025, tc.month, 15, 0, 0, 0, 0, time.UTC))
		if q != tc.quarter || year != 2025 {
			t.Fatalf("%s: want Q%d 2025, got Q%d %d", tc.month, tc.quarter, q, year)
		}
	}
}

func TestQuarterRangeCoversWholeQuarter(t *testing.T) {
	start, end := QuarterRange(4, 2025, time.UTC)
	if !start.Equal(time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if end.Year() != 2025 || end.Month() != time.December || end.Day() != 31 {
		t.Fatalf("unexpected end: %v", end)
	}
	if !InQuarter(end, 4, 2025) || InQuarter(end.Add(time.Nanosecond), 4, 2025) {
		t.Fatalf("end boundary must be inclusive and exact")
	}
}

func TestShouldPromptPendingWithFlags(t *testing.T) {
	// Mid-quarter, far from the window: only the pending flags matter.
	now := time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)
	ck := &Checkin{Status: StatusPending, Flagged: []FlaggedResponsibility{{Index: 0}}}

	if !ShouldPrompt(now, ck, false) {
		t.Fatal("pending checkin with flags must prompt")
	}
	if ShouldPrompt(now, ck, true) {
		t.Fatal("dismissal must suppress the banner")
	}
}

func TestShouldPromptSkipsEmptyPending(t *testing.T) {
	now := time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)
	ck := &Checkin{Status: StatusPending}
	if ShouldPrompt(now, ck, false) {
		t.Fatal("all-caught-up pending checkin must not prompt mid-quarter")
	}
}

func TestShouldPromptEndOfQuarterWindow(t *testing.T) {
	// Q1 2025 ends March 31. March 20 is inside the last 14 days, March 10
	// is not.
	inside := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)
	outside := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	if !ShouldPrompt(inside, nil, false) {
		t.Fatal("last 14 days of the quarter must prompt even without a checkin")
	}
	if ShouldPrompt(outside, nil, false) {
		t.Fatal("outside the window with no checkin must not prompt")
	}
}

func TestShouldPromptIgnoresNonPendingStates(t *testing.T) {
	now := time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)
	for _, st := range []Status{StatusInProgress, StatusCompleted} {
		ck := &Checkin{Status: st, Flagged: []FlaggedResponsibility{{Index: 0}}}
		if ShouldPrompt(now, ck, false) {
			t.Fatalf("%s checkin must not prompt mid-quarter", st)
		}
	}
}
