package service

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/fieldops/planner/internal/models"
)

func TestFindOptimalSlotRanking(t *testing.T) {
	teams := []models.Team{
		{ID: "b", Name: "Beta", Expertise: []string{"solaire"}, IsActive: true},
		{ID: "a", Name: "Alpha", Expertise: []string{"pac"}, IsActive: true},
	}
	s := newTestScheduler(t, teams)
	got, err := s.FindOptimalSlot(models.Installation{Type: "pac", Duration: 120})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the current week is templated; today is Wednesday so 3 days x 2 slots x 2 teams.
	if len(got) != 12 {
		t.Fatalf("expected 12 candidates, got %d", len(got))
	}

	type row struct {
		team  string
		start string
		score int
	}
	want := []row{
		{"a", "2026-10-14 08:00", 135},
		{"a", "2026-10-15 08:00", 132},
		{"a", "2026-10-16 08:00", 130},
		{"a", "2026-10-14 13:00", 125},
		{"a", "2026-10-15 13:00", 122},
		{"b", "2026-10-14 08:00", 120},
		{"a", "2026-10-16 13:00", 120},
	}
	for i, w := range want {
		c := got[i]
		if c.Team.ID != w.team || c.StartDate.Format("2006-01-02 15:04") != w.start || c.Score != w.score {
			t.Fatalf("candidate %d: expected %+v, got team=%s start=%s score=%d", i, w, c.Team.ID, c.StartDate.Format("2006-01-02 15:04"), c.Score)
		}
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if prev.Score < cur.Score || (prev.Score == cur.Score && cur.StartDate.Before(prev.StartDate)) {
			t.Fatalf("candidates out of order at %d", i)
		}
	}
}

func TestFindOptimalSlotMatchingTeamScoresHigher(t *testing.T) {
	teams := []models.Team{
		{ID: "a", Expertise: []string{"pac"}, IsActive: true},
		{ID: "b", Expertise: []string{"solaire"}, IsActive: true},
	}
	s := newTestScheduler(t, teams)
	got, err := s.FindOptimalSlot(models.Installation{Type: "pac", Duration: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byStart := map[time.Time]map[string]int{}
	for _, c := range got {
		if byStart[c.StartDate] == nil {
			byStart[c.StartDate] = map[string]int{}
		}
		byStart[c.StartDate][c.Team.ID] = c.Score
	}
	for start, scores := range byStart {
		if scores["a"] <= scores["b"] {
			t.Fatalf("at %s matching team scored %d, other %d", start, scores["a"], scores["b"])
		}
	}
}

func TestFindOptimalSlotSkipsWeekendsAndShortSlots(t *testing.T) {
	saturday := mustDate(t, "2026-10-17")
	monday := mustDate(t, "2026-10-19")
	team := models.Team{
		ID:        "a",
		Expertise: []string{"pac"},
		IsActive:  true,
		Schedule: []models.DaySchedule{
			{Date: saturday, TimeSlots: DefaultDaySlots()},
			{Date: saturday.AddDays(1), TimeSlots: DefaultDaySlots()},
			{Date: monday, TimeSlots: []models.TimeSlot{
				mustSlot(t, "14:00", "18:00", true),
				mustSlot(t, "08:00", "09:00", true),
				mustSlot(t, "09:00", "13:00", false),
			}},
		},
	}
	s := newTestScheduler(t, []models.Team{team})
	job := models.Installation{Type: "pac", Duration: 180}
	got, err := s.FindOptimalSlot(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mondayStarts []string
	for _, c := range got {
		wd := c.StartDate.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("weekend candidate: %s", c.StartDate)
		}
		if c.EndDate.Sub(c.StartDate) != 180*time.Minute {
			t.Fatalf("candidate end must be start + duration, got %s", c.EndDate.Sub(c.StartDate))
		}
		if c.StartDate.Format("2006-01-02") == "2026-10-19" {
			mondayStarts = append(mondayStarts, c.StartDate.Format("15:04"))
		}
	}
	if !reflect.DeepEqual(mondayStarts, []string{"14:00"}) {
		t.Fatalf("expected only the 14:00 slot on monday, got %v", mondayStarts)
	}
}

func TestFindOptimalSlotEmptyResults(t *testing.T) {
	s := newTestScheduler(t, []models.Team{{ID: "a", Expertise: []string{"pac"}, IsActive: false}})
	got, err := s.FindOptimalSlot(models.Installation{Type: "pac", Duration: 60})
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no candidates for inactive teams, got %d (%v)", len(got), err)
	}

	s = newTestScheduler(t, []models.Team{{ID: "a", Expertise: []string{"pac"}, IsActive: true}})
	got, err = s.FindOptimalSlot(models.Installation{Type: "pac", Duration: 9 * 60})
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no candidates when no slot is long enough, got %d (%v)", len(got), err)
	}
}

func TestFindOptimalSlotRejectsNonPositiveDuration(t *testing.T) {
	s := newTestScheduler(t, nil)
	if _, err := s.FindOptimalSlot(models.Installation{Type: "pac"}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestFindOptimalSlotDeterministic(t *testing.T) {
	teams := []models.Team{
		{ID: "a", Expertise: []string{"pac"}, IsActive: true},
		{ID: "b", Expertise: []string{"pac", "clim"}, IsActive: true},
		{ID: "c", Expertise: []string{"clim"}, IsActive: true},
	}
	job := models.Installation{Type: "pac", Duration: 90}
	first, err := newTestScheduler(t, teams).FindOptimalSlot(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := newTestScheduler(t, teams).FindOptimalSlot(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical candidate lists")
	}
}

func TestNewSchedulerDoesNotMutateInput(t *testing.T) {
	teams := []models.Team{{ID: "a", IsActive: true}}
	s := newTestScheduler(t, teams)
	if len(teams[0].Schedule) != 0 {
		t.Fatalf("input team was modified")
	}
	if len(s.Teams()[0].Schedule) != 5 {
		t.Fatalf("expected template on snapshot team")
	}
}

func TestNewSchedulerRejectsInvalidSchedule(t *testing.T) {
	day := mustDate(t, "2026-10-15")
	teams := []models.Team{{ID: "a", Schedule: []models.DaySchedule{
		{Date: day, TimeSlots: []models.TimeSlot{{Start: 600, End: 540, IsAvailable: true}}},
	}}}
	if _, err := NewScheduler(teams, Options{Now: fixedNow}); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestAvailableTeamsForDate(t *testing.T) {
	thursday := mustDate(t, "2026-10-15")
	teams := []models.Team{
		{ID: "match", Expertise: []string{"pac"}, IsActive: true},
		{ID: "other", Expertise: []string{"clim"}, IsActive: true},
		{ID: "inactive", Expertise: []string{"pac"}, IsActive: false},
		{ID: "busy", Expertise: []string{"pac"}, IsActive: true, Schedule: []models.DaySchedule{
			{Date: thursday, TimeSlots: []models.TimeSlot{mustSlot(t, "08:00", "18:00", false)}},
		}},
		{ID: "short", Expertise: []string{"pac"}, IsActive: true, Schedule: []models.DaySchedule{
			{Date: thursday, TimeSlots: []models.TimeSlot{mustSlot(t, "08:00", "08:30", true)}},
		}},
	}
	s := newTestScheduler(t, teams)
	got, err := s.AvailableTeamsForDate("2026-10-15", models.Installation{Type: "pac", Duration: 600})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, team := range got {
		ids = append(ids, team.ID)
	}
	if !reflect.DeepEqual(ids, []string{"match", "short"}) {
		t.Fatalf("expected [match short], got %v", ids)
	}

	got, err = s.AvailableTeamsForDate("2026-10-30", models.Installation{Type: "pac", Duration: 60})
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no teams outside the templated week, got %d (%v)", len(got), err)
	}

	if _, err := s.AvailableTeamsForDate("15/10/2026", models.Installation{Type: "pac"}); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestUsableSlotsFiltersAndOrders(t *testing.T) {
	slots := []models.TimeSlot{
		mustSlot(t, "13:00", "18:00", true),
		mustSlot(t, "08:00", "12:00", false),
		mustSlot(t, "09:00", "10:00", true),
		mustSlot(t, "07:00", "11:00", true),
	}
	got := usableSlots(slots, 120)
	if len(got) != 2 || got[0].Start.String() != "07:00" || got[1].Start.String() != "13:00" {
		t.Fatalf("unexpected usable slots: %+v", got)
	}
	if slots[0].Start.String() != "13:00" || len(slots) != 4 {
		t.Fatalf("input slots were modified: %+v", slots)
	}
}

func TestFilterTeamsKeepsInputAndNeverNil(t *testing.T) {
	teams := []models.Team{{ID: "a", IsActive: true}, {ID: "b"}, {ID: "c", IsActive: true}}
	active := filterTeams(teams, func(t models.Team) bool { return t.IsActive })
	if len(active) != 2 || active[0].ID != "a" || active[1].ID != "c" {
		t.Fatalf("unexpected active teams: %+v", active)
	}
	if teams[1].ID != "b" {
		t.Fatalf("input teams were modified: %+v", teams)
	}
	if none := filterTeams(nil, func(models.Team) bool { return true }); none == nil {
		t.Fatalf("expected an empty, non-nil slice")
	}
}
