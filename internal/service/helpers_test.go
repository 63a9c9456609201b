package service

import (
	"testing"
	"time"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

// Wednesday 2026-10-14.
func fixedNow() time.Time {
	return time.Date(2026, time.October, 14, 7, 30, 0, 0, time.UTC)
}

func mustDate(t *testing.T, value string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}

func mustSlot(t *testing.T, start, end string, available bool) models.TimeSlot {
	t.Helper()
	slot, err := NewTimeSlot(start, end, available)
	if err != nil {
		t.Fatalf("slot %s-%s: %v", start, end, err)
	}
	return slot
}

func newTestScheduler(t *testing.T, teams []models.Team) *Scheduler {
	t.Helper()
	s, err := NewScheduler(teams, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s
}

func intPtr(v int) *int {
	return &v
}
