package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	Pool *pgxpool.Pool
}

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Migrate creates missing tables. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schemaSQL)
	return err
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const teamColumns = `id, name, expertise, is_active, current_load, color, schedule, updated_at`

func (s *Store) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTeam(ctx context.Context, id string) (models.Team, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	return scanTeam(row)
}

// LockTeam reads a team and holds its row lock until tx ends.
func (s *Store) LockTeam(ctx context.Context, tx pgx.Tx, id string) (models.Team, error) {
	row := tx.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id)
	return scanTeam(row)
}

func (s *Store) UpsertTeam(ctx context.Context, t models.Team) error {
	schedule, err := json.Marshal(t.Schedule)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO teams (id, name, expertise, is_active, current_load, color, schedule, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			expertise = EXCLUDED.expertise,
			is_active = EXCLUDED.is_active,
			color = EXCLUDED.color,
			schedule = EXCLUDED.schedule,
			updated_at = now()`,
		t.ID, t.Name, t.Expertise, t.IsActive, t.CurrentLoad, t.Color, schedule)
	return err
}

func (s *Store) UpdateTeamLoad(ctx context.Context, tx pgx.Tx, teamID string, load int) error {
	_, err := tx.Exec(ctx, `UPDATE teams SET current_load = $2, updated_at = now() WHERE id = $1`, teamID, load)
	return err
}

const appointmentColumns = `id, title, client_id, project_id, date::text, start_time, team_id, team_name, team_color,
	type, duration, installation_time, hours, status, days_span, is_multi_day, is_first_day, is_last_day,
	parent_id, created_at`

// ListAppointments returns appointments dated in [from, to).
func (s *Store) ListAppointments(ctx context.Context, from, to calendar.Date) ([]models.Appointment, error) {
	return listAppointments(ctx, s.Pool, from, to)
}

// ListAppointmentsTx is ListAppointments seen from inside tx.
func (s *Store) ListAppointmentsTx(ctx context.Context, tx pgx.Tx, from, to calendar.Date) ([]models.Appointment, error) {
	return listAppointments(ctx, tx, from, to)
}

func listAppointments(ctx context.Context, q querier, from, to calendar.Date) ([]models.Appointment, error) {
	return queryAppointments(ctx, q, `SELECT `+appointmentColumns+` FROM appointments
		WHERE date >= $1 AND date < $2 ORDER BY date ASC, start_time ASC, id ASC`, from.String(), to.String())
}

// ListAppointmentGroup returns every day of the job appointment id belongs to.
func (s *Store) ListAppointmentGroup(ctx context.Context, id string) ([]models.Appointment, error) {
	appts, err := queryAppointments(ctx, s.Pool, `SELECT `+appointmentColumns+` FROM appointments
		WHERE id = (SELECT COALESCE(parent_id, id) FROM appointments WHERE id = $1)
		   OR parent_id = (SELECT COALESCE(parent_id, id) FROM appointments WHERE id = $1)
		ORDER BY date ASC`, id)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, pgx.ErrNoRows
	}
	return appts, nil
}

func (s *Store) ListProjectAppointments(ctx context.Context, projectID string) ([]models.Appointment, error) {
	return listProjectAppointments(ctx, s.Pool, projectID)
}

func (s *Store) ListProjectAppointmentsTx(ctx context.Context, tx pgx.Tx, projectID string) ([]models.Appointment, error) {
	return listProjectAppointments(ctx, tx, projectID)
}

func listProjectAppointments(ctx context.Context, q querier, projectID string) ([]models.Appointment, error) {
	return queryAppointments(ctx, q, `SELECT `+appointmentColumns+` FROM appointments
		WHERE project_id = $1 ORDER BY date ASC`, projectID)
}

func (s *Store) InsertAppointments(ctx context.Context, tx pgx.Tx, appts []models.Appointment) error {
	for _, a := range appts {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, title, client_id, project_id, date, start_time, team_id, team_name, team_color,
				type, duration, installation_time, hours, status, days_span, is_multi_day, is_first_day, is_last_day, parent_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			a.ID, a.Title, a.ClientID, nullIfEmpty(a.ProjectID), a.Date.String(), a.StartTime.String(), a.TeamID, a.TeamName, a.TeamColor,
			a.Type, a.Duration, a.InstallationTime, a.Hours, string(a.Status), a.DaysSpan, a.IsMultiDay, a.IsFirstDay, a.IsLastDay, a.ParentID)
		if err != nil {
			return fmt.Errorf("insert appointment %s: %w", a.ID, err)
		}
	}
	return nil
}

func (s *Store) UpdateAppointments(ctx context.Context, tx pgx.Tx, appts []models.Appointment) error {
	for _, a := range appts {
		tag, err := tx.Exec(ctx, `
			UPDATE appointments SET team_id = $2, team_name = $3, team_color = $4, status = $5
			WHERE id = $1`,
			a.ID, a.TeamID, a.TeamName, a.TeamColor, string(a.Status))
		if err != nil {
			return fmt.Errorf("update appointment %s: %w", a.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
	}
	return nil
}

const projectColumns = `id, name, client_id, team_id, materials, documents_collected, status, updated_at`

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// LockProject reads a project and holds its row lock until tx ends.
func (s *Store) LockProject(ctx context.Context, tx pgx.Tx, id string) (models.Project, error) {
	row := tx.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE`, id)
	return scanProject(row)
}

func (s *Store) ListProjectsByTeam(ctx context.Context, teamID string) ([]models.Project, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE team_id = $1 ORDER BY id ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, tx pgx.Tx, p models.Project) error {
	materials, err := json.Marshal(p.Materials)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE projects SET team_id = $2, materials = $3, documents_collected = $4, status = $5, updated_at = $6
		WHERE id = $1`,
		p.ID, nullIfEmpty(p.TeamID), materials, p.DocumentsCollected, string(p.Status), p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func queryAppointments(ctx context.Context, q querier, query string, args ...any) ([]models.Appointment, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanTeam(row pgx.Row) (models.Team, error) {
	var (
		t        models.Team
		schedule []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Expertise, &t.IsActive, &t.CurrentLoad, &t.Color, &schedule, &t.UpdatedAt); err != nil {
		return models.Team{}, err
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &t.Schedule); err != nil {
			return models.Team{}, fmt.Errorf("team %s schedule: %w", t.ID, err)
		}
	}
	return t, nil
}

func scanAppointment(row pgx.Row) (models.Appointment, error) {
	var (
		a         models.Appointment
		projectID *string
		date      string
		startTime string
		status    string
		createdAt time.Time
	)
	err := row.Scan(&a.ID, &a.Title, &a.ClientID, &projectID, &date, &startTime, &a.TeamID, &a.TeamName, &a.TeamColor,
		&a.Type, &a.Duration, &a.InstallationTime, &a.Hours, &status, &a.DaysSpan, &a.IsMultiDay, &a.IsFirstDay, &a.IsLastDay,
		&a.ParentID, &createdAt)
	if err != nil {
		return models.Appointment{}, err
	}
	if a.Date, err = calendar.ParseDate(date); err != nil {
		return models.Appointment{}, err
	}
	if a.StartTime, err = calendar.ParseClock(startTime); err != nil {
		return models.Appointment{}, fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	a.ProjectID = derefString(projectID)
	a.Status = models.AppointmentStatus(status)
	a.CreatedAt = createdAt
	return a, nil
}

func scanProject(row pgx.Row) (models.Project, error) {
	var (
		p         models.Project
		teamID    *string
		materials []byte
		status    string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.ClientID, &teamID, &materials, &p.DocumentsCollected, &status, &p.UpdatedAt); err != nil {
		return models.Project{}, err
	}
	if len(materials) > 0 {
		if err := json.Unmarshal(materials, &p.Materials); err != nil {
			return models.Project{}, fmt.Errorf("project %s materials: %w", p.ID, err)
		}
	}
	p.TeamID = derefString(teamID)
	p.Status = models.AppointmentStatus(status)
	return p, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
