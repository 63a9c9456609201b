package service

import (
	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

const (
	baseScore         = 100
	expertiseBonus    = 30
	dailyPenalty      = 5
	breadthBonus      = 5
	earlyStartHour    = 9
	earlyStartBonus   = 20
	morningStartHour  = 11
	morningStartBonus = 10
	dayEndHour        = 18
	sameDayBonus      = 15
)

// TeamScore rates a team for a job starting on candidate, relative to today.
// Dates before today carry no penalty.
func TeamScore(team models.Team, job models.Installation, candidate, today calendar.Date) int {
	score := baseScore
	if team.HasExpertise(job.Type) {
		score += expertiseBonus
	}
	if days := candidate.DaysSince(today); days > 0 {
		score -= dailyPenalty * days
	}
	score += breadthBonus * len(team.Expertise)
	if score < 0 {
		return 0
	}
	return score
}

// SlotScore rates a slot for a job: morning starts and finishing within the
// working day are preferred.
func SlotScore(slot models.TimeSlot, job models.Installation) int {
	score := baseScore
	hour := slot.Start.Hour()
	switch {
	case hour <= earlyStartHour:
		score += earlyStartBonus
	case hour <= morningStartHour:
		score += morningStartBonus
	}
	if hour+ceilDiv(job.Duration, 60) <= dayEndHour {
		score += sameDayBonus
	}
	return score
}

// CombinedScore is the floor of the mean of both scores.
func CombinedScore(teamScore, slotScore int) int {
	return (teamScore + slotScore) / 2
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
