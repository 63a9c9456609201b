package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

const WorkdayHours = 8

var DefaultStartTime = calendar.MustClock("08:00")

// LineItem is one selected product or service. InstallationTime is in
// minutes; nil counts as zero.
type LineItem struct {
	Name             string `json:"name"`
	InstallationTime *int   `json:"installationTime,omitempty" validate:"omitempty,gte=0"`
}

type Estimate struct {
	TotalInstallationTime int     `json:"totalInstallationTime"`
	DurationInHours       int     `json:"durationInHours"`
	DurationInDays        float64 `json:"durationInDays"`
	DaysSpan              int     `json:"daysSpan"`
	DurationText          string  `json:"durationText"`
}

func TotalInstallationTime(items []LineItem) int {
	total := 0
	for _, item := range items {
		if item.InstallationTime != nil && *item.InstallationTime > 0 {
			total += *item.InstallationTime
		}
	}
	return total
}

// EstimateDuration converts minutes of work into working hours and days.
// A job always takes at least one hour.
func EstimateDuration(totalMinutes int) Estimate {
	hours := ceilDiv(totalMinutes, 60)
	if hours < 1 {
		hours = 1
	}
	days := float64(hours) / WorkdayHours
	span := ceilDiv(hours, WorkdayHours)

	text := fmt.Sprintf("%dh", hours)
	if days >= 1 {
		text = fmt.Sprintf("%.1f jours", days)
	}
	return Estimate{
		TotalInstallationTime: totalMinutes,
		DurationInHours:       hours,
		DurationInDays:        days,
		DaysSpan:              span,
		DurationText:          text,
	}
}

// CheckStartDate enforces that multi-day jobs never start on a Friday. It is
// a date-selection rule; Decompose does not call it.
func CheckStartDate(date calendar.Date, daysSpan int) error {
	if daysSpan > 1 && date.IsFriday() {
		return fmt.Errorf("%w: %s", ErrFridayStart, date)
	}
	return nil
}

type PlanRequest struct {
	Title            string
	ClientID         string
	ProjectID        string
	Type             string
	Items            []LineItem
	InstallationDate calendar.Date
	// StartTime nil means DefaultStartTime. 00:00 is a valid start.
	StartTime *calendar.Clock
	Team      *models.Team
}

// Decompose splits a job into one appointment per calendar day. Following
// days are consecutive calendar days, weekends included, and point at the
// first day through ParentID. newID defaults to uuid.NewString.
func Decompose(req PlanRequest, newID func() string) ([]models.Appointment, Estimate) {
	if newID == nil {
		newID = uuid.NewString
	}
	est := EstimateDuration(TotalInstallationTime(req.Items))

	template := models.Appointment{
		Title:            req.Title,
		ClientID:         req.ClientID,
		ProjectID:        req.ProjectID,
		StartTime:        DefaultStartTime,
		Type:             req.Type,
		Duration:         est.DurationText,
		InstallationTime: est.TotalInstallationTime,
		Status:           models.StatusUnassigned,
		DaysSpan:         est.DaysSpan,
		IsMultiDay:       est.DaysSpan > 1,
	}
	if req.StartTime != nil {
		template.StartTime = *req.StartTime
	}
	if req.Team != nil {
		assignTeam(&template, *req.Team)
	}

	out := make([]models.Appointment, 0, est.DaysSpan)
	mainID := newID()
	remaining := est.DurationInHours
	for i := 0; i < est.DaysSpan; i++ {
		appt := template
		appt.Date = req.InstallationDate.AddDays(i)
		appt.Hours = min(WorkdayHours, remaining)
		remaining -= appt.Hours
		appt.IsFirstDay = i == 0
		appt.IsLastDay = i == est.DaysSpan-1
		if i == 0 {
			appt.ID = mainID
		} else {
			appt.ID = newID()
			parent := mainID
			appt.ParentID = &parent
		}
		out = append(out, appt)
	}
	return out, est
}
