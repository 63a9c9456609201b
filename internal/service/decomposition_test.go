package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("appt-%d", n)
	}
}

func TestEstimateDuration(t *testing.T) {
	cases := []struct {
		minutes int
		hours   int
		days    float64
		span    int
		text    string
	}{
		{1440, 24, 3.0, 3, "3.0 jours"},
		{0, 1, 0.125, 1, "1h"},
		{90, 2, 0.25, 1, "2h"},
		{480, 8, 1.0, 1, "1.0 jours"},
		{1200, 20, 2.5, 3, "2.5 jours"},
	}
	for _, tc := range cases {
		est := EstimateDuration(tc.minutes)
		if est.DurationInHours != tc.hours || est.DurationInDays != tc.days || est.DaysSpan != tc.span || est.DurationText != tc.text {
			t.Fatalf("EstimateDuration(%d): got %+v", tc.minutes, est)
		}
	}
}

func TestTotalInstallationTimeIgnoresMissingEstimates(t *testing.T) {
	items := []LineItem{
		{Name: "PAC air/eau", InstallationTime: intPtr(600)},
		{Name: "Kit hydraulique"},
		{Name: "Mise en service", InstallationTime: intPtr(120)},
	}
	if got := TotalInstallationTime(items); got != 720 {
		t.Fatalf("expected 720, got %d", got)
	}
}

func TestDecomposeMultiDay(t *testing.T) {
	start := mustDate(t, "2026-10-14")
	req := PlanRequest{
		Title:            "Installation PAC",
		ClientID:         "client-1",
		Type:             "pac",
		Items:            []LineItem{{Name: "PAC", InstallationTime: intPtr(1440)}},
		InstallationDate: start,
	}
	appts, est := Decompose(req, sequentialIDs())
	if est.DurationInHours != 24 || est.DurationInDays != 3.0 || est.DaysSpan != 3 {
		t.Fatalf("unexpected estimate: %+v", est)
	}
	if len(appts) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(appts))
	}

	main := appts[0]
	if main.ID != "appt-1" || main.ParentID != nil || !main.IsFirstDay || main.IsLastDay {
		t.Fatalf("unexpected main appointment: %+v", main)
	}
	for i, a := range appts {
		if !a.Date.Equal(start.AddDays(i)) {
			t.Fatalf("day %d: expected %s, got %s", i, start.AddDays(i), a.Date)
		}
		if a.DaysSpan != 3 || !a.IsMultiDay || a.Duration != "3.0 jours" || a.Type != "pac" {
			t.Fatalf("day %d: inconsistent group fields: %+v", i, a)
		}
		if a.Hours != 8 {
			t.Fatalf("day %d: expected 8 hours, got %d", i, a.Hours)
		}
		if a.Status != models.StatusUnassigned || a.TeamID != nil {
			t.Fatalf("day %d: expected unassigned, got %s", i, a.Status)
		}
		if a.StartTime != DefaultStartTime {
			t.Fatalf("day %d: expected default start, got %s", i, a.StartTime)
		}
		if i == 0 {
			continue
		}
		if a.ParentID == nil || *a.ParentID != main.ID {
			t.Fatalf("day %d: expected parent %s", i, main.ID)
		}
		if a.IsFirstDay {
			t.Fatalf("day %d: only the first day is first", i)
		}
		if a.IsLastDay != (i == 2) {
			t.Fatalf("day %d: wrong last-day flag", i)
		}
	}
}

func TestDecomposeSingleDay(t *testing.T) {
	appts, est := Decompose(PlanRequest{InstallationDate: mustDate(t, "2026-10-15")}, sequentialIDs())
	if est.DurationInHours != 1 || est.DaysSpan != 1 {
		t.Fatalf("unexpected estimate: %+v", est)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}
	a := appts[0]
	if !a.IsFirstDay || !a.IsLastDay || a.IsMultiDay || a.ParentID != nil || a.Hours != 1 {
		t.Fatalf("unexpected single day appointment: %+v", a)
	}
}

func TestDecomposeWithTeam(t *testing.T) {
	team := models.Team{ID: "t1", Name: "Equipe Nord", Color: "#ff0000"}
	req := PlanRequest{
		Items:            []LineItem{{InstallationTime: intPtr(1200)}},
		InstallationDate: mustDate(t, "2026-10-19"),
		StartTime:        clockPtr(calendar.MustClock("09:00")),
		Team:             &team,
	}
	appts, _ := Decompose(req, nil)
	hours := []int{8, 8, 4}
	for i, a := range appts {
		if a.Status != models.StatusAssigned {
			t.Fatalf("day %d: expected attribue, got %s", i, a.Status)
		}
		if a.TeamName == nil || *a.TeamName != "Equipe Nord" || a.TeamColor != "#ff0000" {
			t.Fatalf("day %d: team not propagated: %+v", i, a)
		}
		if a.StartTime.String() != "09:00" {
			t.Fatalf("day %d: expected 09:00, got %s", i, a.StartTime)
		}
		if a.Hours != hours[i] {
			t.Fatalf("day %d: expected %d hours, got %d", i, hours[i], a.Hours)
		}
		if a.ID == "" {
			t.Fatalf("day %d: missing id", i)
		}
	}
}

func TestDecomposeCountsCalendarDays(t *testing.T) {
	friday := mustDate(t, "2026-10-16")
	appts, _ := Decompose(PlanRequest{
		Items:            []LineItem{{InstallationTime: intPtr(1440)}},
		InstallationDate: friday,
	}, sequentialIDs())
	got := []string{appts[0].Date.String(), appts[1].Date.String(), appts[2].Date.String()}
	want := []string{"2026-10-16", "2026-10-17", "2026-10-18"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCheckStartDate(t *testing.T) {
	friday := mustDate(t, "2026-10-16")
	if err := CheckStartDate(friday, 3); !errors.Is(err, ErrFridayStart) {
		t.Fatalf("expected ErrFridayStart, got %v", err)
	}
	if err := CheckStartDate(friday, 1); err != nil {
		t.Fatalf("single day friday jobs are allowed, got %v", err)
	}
	if err := CheckStartDate(friday.AddDays(-1), 3); err != nil {
		t.Fatalf("thursday start is allowed, got %v", err)
	}
}

func TestDecomposeKeepsMidnightStart(t *testing.T) {
	req := PlanRequest{
		Items:            []LineItem{{InstallationTime: intPtr(60)}},
		InstallationDate: mustDate(t, "2026-10-19"),
		StartTime:        clockPtr(calendar.NewClock(0, 0)),
	}
	appts, _ := Decompose(req, nil)
	if len(appts) != 1 || appts[0].StartTime.String() != "00:00" {
		t.Fatalf("expected a 00:00 start, got %+v", appts)
	}
}

func clockPtr(c calendar.Clock) *calendar.Clock {
	return &c
}
