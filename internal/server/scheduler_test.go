package server

import (
	"testing"
	"time"
)

func TestIsDue(t *testing.T) {
	// "At 06:00 on the 1st of every month", the default review cadence.
	const spec = "0 6 1 * *"
	now := time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

	if !isDue(spec, nil, now) {
		t.Fatal("never-run must always be due")
	}

	beforeFiring := time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC)
	if !isDue(spec, &beforeFiring, now) {
		t.Fatal("cron fired July 1st since the last run, must be due")
	}

	afterFiring := time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)
	if isDue(spec, &afterFiring, now) {
		t.Fatal("no firing since the last run, must not be due")
	}
}

func TestIsDueInvalidSpecFallsBackMonthly(t *testing.T) {
	now := time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

	recent := now.Add(-10 * 24 * time.Hour)
	if isDue("bananas", &recent, now) {
		t.Fatal("10 days is inside the monthly fallback window")
	}
	stale := now.Add(-40 * 24 * time.Hour)
	if !isDue("bananas", &stale, now) {
		t.Fatal("40 days exceeds the monthly fallback window")
	}
}
