package models

import (
	"slices"
	"time"

	"github.com/fieldops/planner/internal/calendar"
)

type TimeSlot struct {
	Start       calendar.Clock `json:"start"`
	End         calendar.Clock `json:"end"`
	IsAvailable bool           `json:"isAvailable"`
}

// Minutes returns the length of the slot.
func (s TimeSlot) Minutes() int {
	return s.End.Minutes() - s.Start.Minutes()
}

type DaySchedule struct {
	Date      calendar.Date `json:"date"`
	TimeSlots []TimeSlot    `json:"timeSlots"`
}

type Team struct {
	ID          string        `json:"id"`
	Name        string        `json:"name" validate:"required"`
	Expertise   []string      `json:"expertise"`
	IsActive    bool          `json:"isActive"`
	CurrentLoad int           `json:"currentLoad"`
	Color       string        `json:"color,omitempty"`
	Schedule    []DaySchedule `json:"schedule"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (t Team) HasExpertise(tag string) bool {
	return slices.Contains(t.Expertise, tag)
}

// ScheduleFor returns the entry for date, if the team has one.
func (t Team) ScheduleFor(date calendar.Date) (DaySchedule, bool) {
	i := slices.IndexFunc(t.Schedule, func(day DaySchedule) bool { return day.Date.Equal(date) })
	if i < 0 {
		return DaySchedule{}, false
	}
	return t.Schedule[i], true
}

type Location struct {
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Address    string `json:"address,omitempty"`
}

// Installation is a job request. Duration is in minutes.
type Installation struct {
	Type     string   `json:"type" validate:"required"`
	Duration int      `json:"duration" validate:"gt=0"`
	Location Location `json:"location"`
}

type AppointmentStatus string

const (
	StatusUnassigned AppointmentStatus = "non_attribue"
	StatusAssigned   AppointmentStatus = "attribue"
	StatusDone       AppointmentStatus = "termine"
)

type Appointment struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	ClientID         string            `json:"clientId"`
	ProjectID        string            `json:"projectId,omitempty"`
	Date             calendar.Date     `json:"date"`
	StartTime        calendar.Clock    `json:"startTime"`
	TeamID           *string           `json:"teamId"`
	TeamName         *string           `json:"team"`
	TeamColor        string            `json:"teamColor,omitempty"`
	Type             string            `json:"type"`
	Duration         string            `json:"duration"`
	InstallationTime int               `json:"installationTime"`
	Hours            int               `json:"hours"`
	Status           AppointmentStatus `json:"status"`
	DaysSpan         int               `json:"daysSpan"`
	IsMultiDay       bool              `json:"isMultiDay"`
	IsFirstDay       bool              `json:"isFirstDay"`
	IsLastDay        bool              `json:"isLastDay"`
	ParentID         *string           `json:"parentId"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// GroupID is the id of the main appointment of the job this day belongs to.
func (a Appointment) GroupID() string {
	if a.ParentID != nil {
		return *a.ParentID
	}
	return a.ID
}

type Material struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    MaterialStatus `json:"status"`
	Comment   string         `json:"comment,omitempty"`
	UpdatedBy string         `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

type Project struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	ClientID           string            `json:"clientId"`
	TeamID             string            `json:"teamId,omitempty"`
	Materials          []Material        `json:"materials"`
	DocumentsCollected bool              `json:"documentsCollected"`
	Status             AppointmentStatus `json:"status"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// Candidate is one feasible team/slot pairing for a job.
type Candidate struct {
	Team      Team      `json:"team"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Score     int       `json:"score"`
}
