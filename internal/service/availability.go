package service

import (
	"fmt"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

var (
	morningStart   = calendar.MustClock("08:00")
	morningEnd     = calendar.MustClock("12:00")
	afternoonStart = calendar.MustClock("13:00")
	afternoonEnd   = calendar.MustClock("18:00")
)

// DefaultDaySlots is the template used for a business day with no entry.
func DefaultDaySlots() []models.TimeSlot {
	return []models.TimeSlot{
		{Start: morningStart, End: morningEnd, IsAvailable: true},
		{Start: afternoonStart, End: afternoonEnd, IsAvailable: true},
	}
}

// EnsureWeeklyTemplate appends the default day to team for each business day
// of week that has no schedule entry. Existing entries are never touched.
// It returns the number of days added.
func EnsureWeeklyTemplate(team *models.Team, week calendar.Week) int {
	added := 0
	for _, day := range week.BusinessDays() {
		if _, ok := team.ScheduleFor(day); ok {
			continue
		}
		team.Schedule = append(team.Schedule, models.DaySchedule{
			Date:      day,
			TimeSlots: DefaultDaySlots(),
		})
		added++
	}
	return added
}

// NewTimeSlot parses "HH:MM" bounds into a slot.
func NewTimeSlot(start, end string, available bool) (models.TimeSlot, error) {
	s, err := calendar.ParseClock(start)
	if err != nil {
		return models.TimeSlot{}, err
	}
	e, err := calendar.ParseClock(end)
	if err != nil {
		return models.TimeSlot{}, err
	}
	slot := models.TimeSlot{Start: s, End: e, IsAvailable: available}
	if err := validateSlot(slot); err != nil {
		return models.TimeSlot{}, err
	}
	return slot, nil
}

func validateSlot(slot models.TimeSlot) error {
	if slot.End <= slot.Start {
		return fmt.Errorf("%w: %s-%s", ErrInvalidSlot, slot.Start, slot.End)
	}
	return nil
}

// ValidateSchedule rejects duplicate dates and slots that do not end after
// they start.
func ValidateSchedule(team models.Team) error {
	seen := make(map[string]struct{}, len(team.Schedule))
	for _, day := range team.Schedule {
		key := day.Date.String()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("team %s: %w: %s", team.ID, ErrDuplicateScheduleDate, key)
		}
		seen[key] = struct{}{}
		for _, slot := range day.TimeSlots {
			if err := validateSlot(slot); err != nil {
				return fmt.Errorf("team %s on %s: %w", team.ID, key, err)
			}
		}
	}
	return nil
}
