package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

// Store is the persistence the planning service reads snapshots from and
// writes decisions to.
type Store interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
	GetTeam(ctx context.Context, id string) (models.Team, error)
	ListAppointments(ctx context.Context, from, to calendar.Date) ([]models.Appointment, error)
	ListAppointmentGroup(ctx context.Context, id string) ([]models.Appointment, error)
	ListProjectAppointments(ctx context.Context, projectID string) ([]models.Appointment, error)
	GetProject(ctx context.Context, id string) (models.Project, error)
	ListProjectsByTeam(ctx context.Context, teamID string) ([]models.Project, error)

	// WithTx runs fn in one transaction. The Lock and Tx reads below must
	// be called inside fn so a load or status is recomputed from rows no
	// concurrent writer can change before commit.
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	LockTeam(ctx context.Context, tx pgx.Tx, id string) (models.Team, error)
	LockProject(ctx context.Context, tx pgx.Tx, id string) (models.Project, error)
	ListAppointmentsTx(ctx context.Context, tx pgx.Tx, from, to calendar.Date) ([]models.Appointment, error)
	ListProjectAppointmentsTx(ctx context.Context, tx pgx.Tx, projectID string) ([]models.Appointment, error)
	InsertAppointments(ctx context.Context, tx pgx.Tx, appts []models.Appointment) error
	UpdateAppointments(ctx context.Context, tx pgx.Tx, appts []models.Appointment) error
	UpdateTeamLoad(ctx context.Context, tx pgx.Tx, teamID string, load int) error
	UpdateProject(ctx context.Context, tx pgx.Tx, p models.Project) error
}

type PlanningService struct {
	Store     Store
	Logger    zerolog.Logger
	Options Options
	// StartTime is the first-day start of planned appointments. Nil means
	// DefaultStartTime.
	StartTime *calendar.Clock
	NewID     func() string
}

type PlanInput struct {
	Title            string        `json:"title" validate:"required"`
	ClientID         string        `json:"clientId" validate:"required"`
	ProjectID        string        `json:"projectId"`
	Type             string        `json:"type" validate:"required"`
	Items            []LineItem    `json:"items" validate:"required,min=1,dive"`
	InstallationDate calendar.Date `json:"installationDate"`
	TeamID           string        `json:"teamId"`
}

type PlanResult struct {
	Estimate     Estimate             `json:"estimate"`
	Appointments []models.Appointment `json:"appointments"`
	TeamLoad     *int                 `json:"teamLoad,omitempty"`
}

type ProjectProgressResult struct {
	ProjectID            string                   `json:"projectId"`
	Progress             int                      `json:"progress"`
	InstallationProgress int                      `json:"installationProgress"`
	Status               models.AppointmentStatus `json:"status"`
}

func (s *PlanningService) now() time.Time {
	if s.Options.Now == nil {
		return time.Now()
	}
	return s.Options.Now()
}

func (s *PlanningService) location() *time.Location {
	if s.Options.Location == nil {
		return time.UTC
	}
	return s.Options.Location
}

// currentWeek is the planning context loads are computed for.
func (s *PlanningService) currentWeek() calendar.Week {
	return calendar.WeekOf(calendar.Today(s.now(), s.location()))
}

// Scheduler builds a scheduler over a fresh team snapshot.
func (s *PlanningService) Scheduler(ctx context.Context) (*Scheduler, error) {
	teams, err := s.Store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	return NewScheduler(teams, s.Options)
}

// Teams lists every team with CurrentLoad recomputed from this week's
// appointments.
func (s *PlanningService) Teams(ctx context.Context) ([]models.Team, error) {
	teams, err := s.Store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	week := s.currentWeek()
	appts, err := s.Store.ListAppointments(ctx, week.Start, week.End())
	if err != nil {
		return nil, err
	}
	return RefreshLoads(teams, appts, week), nil
}

func (s *PlanningService) SearchSlots(ctx context.Context, job models.Installation) ([]models.Candidate, error) {
	sched, err := s.Scheduler(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := sched.FindOptimalSlot(job)
	if err != nil {
		return nil, err
	}
	s.Logger.Debug().Str("type", job.Type).Int("duration", job.Duration).Int("candidates", len(candidates)).Msg("slot search")
	return candidates, nil
}

func (s *PlanningService) AvailableTeams(ctx context.Context, date string, job models.Installation) ([]models.Team, error) {
	if _, err := calendar.ParseDate(date); err != nil {
		return nil, err
	}
	sched, err := s.Scheduler(ctx)
	if err != nil {
		return nil, err
	}
	return sched.AvailableTeamsForDate(date, job)
}

// PlanInstallation decomposes a job into daily appointments and persists them
// together with the assigned team's new load.
func (s *PlanningService) PlanInstallation(ctx context.Context, in PlanInput) (PlanResult, error) {
	if in.InstallationDate.IsZero() {
		return PlanResult{}, fmt.Errorf("%w: installation date is required", ErrInvalidDate)
	}
	est := EstimateDuration(TotalInstallationTime(in.Items))
	if err := CheckStartDate(in.InstallationDate, est.DaysSpan); err != nil {
		return PlanResult{}, err
	}

	req := PlanRequest{
		Title:            in.Title,
		ClientID:         in.ClientID,
		ProjectID:        in.ProjectID,
		Type:             in.Type,
		Items:            in.Items,
		InstallationDate: in.InstallationDate,
		StartTime:        s.StartTime,
	}
	if in.TeamID != "" {
		team, err := s.Store.GetTeam(ctx, in.TeamID)
		if err != nil {
			return PlanResult{}, err
		}
		req.Team = &team
	}

	appts, est := Decompose(req, s.NewID)
	result := PlanResult{Estimate: est, Appointments: appts}

	err := s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		var loads map[string]int
		if req.Team != nil {
			var err error
			if loads, err = s.loadsAfter(ctx, tx, appts, req.Team.ID); err != nil {
				return err
			}
		}
		if err := s.Store.InsertAppointments(ctx, tx, appts); err != nil {
			return err
		}
		for id, load := range loads {
			if err := s.Store.UpdateTeamLoad(ctx, tx, id, load); err != nil {
				return err
			}
			result.TeamLoad = &load
		}
		return s.applyProject(ctx, tx, in.ProjectID, appts)
	})
	if err != nil {
		return PlanResult{}, err
	}

	s.Logger.Info().
		Str("group_id", appts[0].ID).
		Int("days_span", est.DaysSpan).
		Str("team_id", in.TeamID).
		Msg("installation planned")
	return result, nil
}

// AssignGroup moves every day of an appointment's job onto teamID and
// refreshes both the previous and the new team's load.
func (s *PlanningService) AssignGroup(ctx context.Context, appointmentID, teamID string) ([]models.Appointment, error) {
	group, err := s.group(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	team, err := s.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	previous := ""
	if group[0].TeamID != nil {
		previous = *group[0].TeamID
	}

	updated := AssignGroup(group, team)
	err = s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		loads, err := s.loadsAfter(ctx, tx, updated, previous, team.ID)
		if err != nil {
			return err
		}
		if err := s.Store.UpdateAppointments(ctx, tx, updated); err != nil {
			return err
		}
		for id, load := range loads {
			if err := s.Store.UpdateTeamLoad(ctx, tx, id, load); err != nil {
				return err
			}
		}
		return s.applyProject(ctx, tx, group[0].ProjectID, updated)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info().Str("group_id", updated[0].ID).Str("from_team", previous).Str("to_team", team.ID).Msg("group assigned")
	return updated, nil
}

func (s *PlanningService) CompleteGroup(ctx context.Context, appointmentID string) ([]models.Appointment, error) {
	group, err := s.group(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	updated := CompleteGroup(group)
	err = s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.Store.UpdateAppointments(ctx, tx, updated); err != nil {
			return err
		}
		return s.applyProject(ctx, tx, group[0].ProjectID, updated)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info().Str("group_id", updated[0].ID).Msg("group completed")
	return updated, nil
}

// ToggleMaterial flips one material of a project and returns the project's
// new progress.
func (s *PlanningService) ToggleMaterial(ctx context.Context, projectID, materialID string, phase models.MaterialPhase, actor string) (models.Project, ProjectProgressResult, error) {
	if !phase.Valid() {
		return models.Project{}, ProjectProgressResult{}, fmt.Errorf("%w: phase %q", models.ErrInvalidMaterialStatus, phase)
	}

	var project models.Project
	err := s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		if project, err = s.Store.LockProject(ctx, tx, projectID); err != nil {
			return err
		}
		found := false
		materials := make([]models.Material, 0, len(project.Materials))
		for _, m := range project.Materials {
			if m.ID == materialID {
				m = ToggleMaterial(m, phase, actor, s.now())
				found = true
			}
			materials = append(materials, m)
		}
		if !found {
			return pgx.ErrNoRows
		}
		project.Materials = materials
		project.UpdatedAt = s.now().UTC()

		appts, err := s.Store.ListProjectAppointmentsTx(ctx, tx, projectID)
		if err != nil {
			return err
		}
		project.Status = DeriveProjectStatus(appts)
		return s.Store.UpdateProject(ctx, tx, project)
	})
	if err != nil {
		return models.Project{}, ProjectProgressResult{}, err
	}
	return project, progressOf(project), nil
}

func (s *PlanningService) ProjectProgress(ctx context.Context, projectID string) (ProjectProgressResult, error) {
	project, err := s.Store.GetProject(ctx, projectID)
	if err != nil {
		return ProjectProgressResult{}, err
	}
	appts, err := s.Store.ListProjectAppointments(ctx, projectID)
	if err != nil {
		return ProjectProgressResult{}, err
	}
	project.Status = DeriveProjectStatus(appts)
	return progressOf(project), nil
}

func (s *PlanningService) TeamProgress(ctx context.Context, teamID string) (int, error) {
	team, err := s.Store.GetTeam(ctx, teamID)
	if err != nil {
		return 0, err
	}
	projects, err := s.Store.ListProjectsByTeam(ctx, teamID)
	if err != nil {
		return 0, err
	}
	return TeamProgress(team, projects), nil
}

func (s *PlanningService) group(ctx context.Context, appointmentID string) ([]models.Appointment, error) {
	appts, err := s.Store.ListAppointmentGroup(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return Group(appts, appointmentID)
}

// loadsAfter locks teamIDs and returns their current-week load once changed
// is applied. Teams are locked in id order so concurrent callers cannot
// deadlock; an unknown previous team is skipped.
func (s *PlanningService) loadsAfter(ctx context.Context, tx pgx.Tx, changed []models.Appointment, teamIDs ...string) (map[string]int, error) {
	ids := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	teams := make([]models.Team, 0, len(ids))
	for _, id := range ids {
		team, err := s.Store.LockTeam(ctx, tx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, err
		}
		teams = append(teams, team)
	}

	week := s.currentWeek()
	existing, err := s.Store.ListAppointmentsTx(ctx, tx, week.Start, week.End())
	if err != nil {
		return nil, err
	}
	merged := mergeAppointments(existing, changed)
	loads := make(map[string]int, len(teams))
	for _, team := range teams {
		loads[team.ID] = WeeklyLoad(team, merged, week)
	}
	return loads, nil
}

// applyProject locks projectID and stores its status derived from its
// appointments once changed is applied. An empty projectID is a no-op.
func (s *PlanningService) applyProject(ctx context.Context, tx pgx.Tx, projectID string, changed []models.Appointment) error {
	if projectID == "" {
		return nil
	}
	project, err := s.Store.LockProject(ctx, tx, projectID)
	if err != nil {
		return err
	}
	appts, err := s.Store.ListProjectAppointmentsTx(ctx, tx, projectID)
	if err != nil {
		return err
	}
	project.Status = DeriveProjectStatus(mergeAppointments(appts, changed))
	if len(changed) > 0 && changed[0].TeamID != nil {
		project.TeamID = *changed[0].TeamID
	}
	project.UpdatedAt = s.now().UTC()
	return s.Store.UpdateProject(ctx, tx, project)
}

// mergeAppointments replaces appointments of base by id with those of
// changed and appends the new ones.
func mergeAppointments(base, changed []models.Appointment) []models.Appointment {
	byID := make(map[string]int, len(changed))
	for i, a := range changed {
		byID[a.ID] = i
	}
	out := make([]models.Appointment, 0, len(base)+len(changed))
	for _, a := range base {
		if _, ok := byID[a.ID]; ok {
			continue
		}
		out = append(out, a)
	}
	return append(out, changed...)
}

func progressOf(p models.Project) ProjectProgressResult {
	return ProjectProgressResult{
		ProjectID:            p.ID,
		Progress:             ProjectProgress(p),
		InstallationProgress: InstallationProgress(p),
		Status:               p.Status,
	}
}
