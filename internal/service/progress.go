package service

import (
	"math"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

const WeeklyCapacityHours = 40

// LoadPercent maps booked hours onto a 40 hour week, capped at 100.
func LoadPercent(totalHours int) int {
	if totalHours <= 0 {
		return 0
	}
	return min(roundHalfUp(float64(totalHours*100)/WeeklyCapacityHours), 100)
}

// TeamHours sums the hours of appointments assigned to team during week.
func TeamHours(team models.Team, appointments []models.Appointment, week calendar.Week) int {
	total := 0
	for _, a := range appointments {
		if assignedTo(a, team) && week.Contains(a.Date) {
			total += a.Hours
		}
	}
	return total
}

func WeeklyLoad(team models.Team, appointments []models.Appointment, week calendar.Week) int {
	return LoadPercent(TeamHours(team, appointments, week))
}

// RefreshLoads returns copies of teams with CurrentLoad recomputed for week.
func RefreshLoads(teams []models.Team, appointments []models.Appointment, week calendar.Week) []models.Team {
	out := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		t.CurrentLoad = WeeklyLoad(t, appointments, week)
		out = append(out, t)
	}
	return out
}

// PhaseProgress is the completion percentage of materials in phase. The
// loading phase counts the documents checkbox as one extra item.
func PhaseProgress(materials []models.Material, phase models.MaterialPhase, documentsCollected bool) int {
	total := len(materials)
	done := 0
	for _, m := range materials {
		if m.Status.InPhase(phase).Done {
			done++
		}
	}
	if phase == models.PhaseLoading {
		total++
		if documentsCollected {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return roundHalfUp(float64(done*100) / float64(total))
}

// ProjectProgress is the loading-phase completion of p.
func ProjectProgress(p models.Project) int {
	return PhaseProgress(p.Materials, models.PhaseLoading, p.DocumentsCollected)
}

func InstallationProgress(p models.Project) int {
	return PhaseProgress(p.Materials, models.PhaseInstallation, false)
}

// TeamProgress is the rounded mean progress of the projects owned by team.
func TeamProgress(team models.Team, projects []models.Project) int {
	sum, n := 0, 0
	for _, p := range projects {
		if p.TeamID != team.ID {
			continue
		}
		sum += ProjectProgress(p)
		n++
	}
	if n == 0 {
		return 0
	}
	return roundHalfUp(float64(sum) / float64(n))
}

func assignedTo(a models.Appointment, team models.Team) bool {
	if a.TeamID != nil {
		return *a.TeamID == team.ID
	}
	return a.TeamName != nil && *a.TeamName == team.Name
}

func roundHalfUp(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return int(math.Floor(x + 0.5))
}
