package service

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

const DefaultHorizonDays = 14

type Options struct {
	HorizonDays int
	Location    *time.Location
	Now         func() time.Time
}

// Scheduler answers slot questions over one snapshot of teams. Build a new
// one whenever the snapshot changes.
type Scheduler struct {
	teams   []models.Team
	horizon int
	loc     *time.Location
	today   calendar.Date
}

// NewScheduler copies teams, validates their schedules and fills the current
// week's missing business days with the default template.
func NewScheduler(teams []models.Team, opts Options) (*Scheduler, error) {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	today := calendar.Today(opts.Now(), opts.Location)
	week := calendar.WeekOf(today)

	snapshot := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if err := ValidateSchedule(t); err != nil {
			return nil, err
		}
		team := cloneTeam(t)
		EnsureWeeklyTemplate(&team, week)
		snapshot = append(snapshot, team)
	}

	return &Scheduler{
		teams:   snapshot,
		horizon: opts.HorizonDays,
		loc:     opts.Location,
		today:   today,
	}, nil
}

func (s *Scheduler) Today() calendar.Date {
	return s.today
}

// Teams returns a copy of the snapshot, templates included.
func (s *Scheduler) Teams() []models.Team {
	out := make([]models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, cloneTeam(t))
	}
	return out
}

// FindOptimalSlot lists every feasible start for job across active teams
// over the horizon, best score first, earliest start on ties.
func (s *Scheduler) FindOptimalSlot(job models.Installation) ([]models.Candidate, error) {
	if job.Duration <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDuration, job.Duration)
	}

	active := filterTeams(s.teams, func(t models.Team) bool { return t.IsActive })
	candidates := []models.Candidate{}
	for _, team := range active {
		for i := 0; i < s.horizon; i++ {
			day := s.today.AddDays(i)
			if !day.IsBusinessDay() {
				continue
			}
			schedule, ok := team.ScheduleFor(day)
			if !ok {
				continue
			}
			teamScore := TeamScore(team, job, day, s.today)
			for _, slot := range usableSlots(schedule.TimeSlots, job.Duration) {
				start := day.At(slot.Start, s.loc)
				candidates = append(candidates, models.Candidate{
					Team:      team,
					StartDate: start,
					EndDate:   start.Add(time.Duration(job.Duration) * time.Minute),
					Score:     CombinedScore(teamScore, SlotScore(slot, job)),
				})
			}
		}
	}

	slices.SortStableFunc(candidates, func(a, b models.Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return a.StartDate.Compare(b.StartDate)
	})
	return candidates, nil
}

// AvailableTeamsForDate returns active teams with the job's expertise and at
// least one open slot on date. Slot length is not checked.
func (s *Scheduler) AvailableTeamsForDate(date string, job models.Installation) ([]models.Team, error) {
	day, err := calendar.ParseDate(date)
	if err != nil {
		return nil, err
	}
	out := filterTeams(s.teams, func(t models.Team) bool {
		if !t.IsActive || !t.HasExpertise(job.Type) {
			return false
		}
		schedule, ok := t.ScheduleFor(day)
		if !ok {
			return false
		}
		return slices.ContainsFunc(schedule.TimeSlots, func(slot models.TimeSlot) bool { return slot.IsAvailable })
	})
	return out, nil
}

func usableSlots(slots []models.TimeSlot, minutes int) []models.TimeSlot {
	out := slices.DeleteFunc(slices.Clone(slots), func(slot models.TimeSlot) bool {
		return !slot.IsAvailable || slot.Minutes() < minutes
	})
	slices.SortStableFunc(out, func(a, b models.TimeSlot) int {
		return cmp.Compare(a.Start.Hour(), b.Start.Hour())
	})
	return out
}

func filterTeams(teams []models.Team, keep func(models.Team) bool) []models.Team {
	out := append(make([]models.Team, 0, len(teams)), teams...)
	return slices.DeleteFunc(out, func(t models.Team) bool { return !keep(t) })
}

func cloneTeam(t models.Team) models.Team {
	t.Expertise = slices.Clone(t.Expertise)
	schedule := make([]models.DaySchedule, 0, len(t.Schedule))
	for _, day := range t.Schedule {
		day.TimeSlots = slices.Clone(day.TimeSlots)
		schedule = append(schedule, day)
	}
	t.Schedule = schedule
	return t
}
