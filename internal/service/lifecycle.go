package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/fieldops/planner/internal/models"
	"github.com/fieldops/planner/internal/utils"
)

var teamPalette = []string{
	"#2563eb", "#16a34a", "#dc2626", "#d97706",
	"#7c3aed", "#0891b2", "#db2777", "#65a30d",
}

// TeamColor returns the team's own colour, or a stable palette entry derived
// from its id.
func TeamColor(team models.Team) string {
	if team.Color != "" {
		return team.Color
	}
	return utils.PickColor(team.ID, teamPalette)
}

// Group returns the job that appointment id belongs to, main day first.
func Group(appointments []models.Appointment, id string) ([]models.Appointment, error) {
	var mainID string
	for _, a := range appointments {
		if a.ID == id {
			mainID = a.GroupID()
			break
		}
	}
	if mainID == "" {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}

	var group []models.Appointment
	for _, a := range appointments {
		if a.GroupID() == mainID {
			group = append(group, a)
		}
	}
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].Date.Before(group[j].Date)
	})
	return group, nil
}

// AssignGroup puts every day of a job on team. Finished days keep their status.
func AssignGroup(group []models.Appointment, team models.Team) []models.Appointment {
	out := make([]models.Appointment, 0, len(group))
	for _, a := range group {
		assignTeam(&a, team)
		out = append(out, a)
	}
	return out
}

func CompleteGroup(group []models.Appointment) []models.Appointment {
	out := make([]models.Appointment, 0, len(group))
	for _, a := range group {
		a.Status = models.StatusDone
		out = append(out, a)
	}
	return out
}

// ToggleMaterial flips m in phase and stamps who changed it.
func ToggleMaterial(m models.Material, phase models.MaterialPhase, actor string, now time.Time) models.Material {
	current := m.Status.InPhase(phase)
	m.Status = models.MaterialStatus{Phase: phase, Done: !current.Done}
	m.UpdatedBy = actor
	at := now.UTC()
	m.UpdatedAt = &at
	return m
}

// DeriveProjectStatus folds appointment statuses into a project status.
func DeriveProjectStatus(appointments []models.Appointment) models.AppointmentStatus {
	if len(appointments) == 0 {
		return models.StatusUnassigned
	}
	done := 0
	for _, a := range appointments {
		switch a.Status {
		case models.StatusUnassigned:
			return models.StatusUnassigned
		case models.StatusDone:
			done++
		}
	}
	if done == len(appointments) {
		return models.StatusDone
	}
	return models.StatusAssigned
}

func assignTeam(a *models.Appointment, team models.Team) {
	id, name := team.ID, team.Name
	a.TeamID = &id
	a.TeamName = &name
	a.TeamColor = TeamColor(team)
	if a.Status != models.StatusDone {
		a.Status = models.StatusAssigned
	}
}
