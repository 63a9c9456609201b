package db

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

// MemoryStore keeps teams, appointments and projects in process. It backs
// the server when no database is configured and the handler tests.
// Missing records are reported as pgx.ErrNoRows, like Store.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	teams        map[string]models.Team
	appointments map[string]models.Appointment
	projects     map[string]models.Project
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:        map[string]models.Team{},
		appointments: map[string]models.Appointment{},
		projects:     map[string]models.Project{},
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WithTx runs fn with a nil tx while holding txMu, so the reads, the
// recomputation and the writes fn makes are serialized against every other
// transaction. On error every change fn made is rolled back.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	teams := copyMap(m.teams)
	appts := copyMap(m.appointments)
	projects := copyMap(m.projects)
	m.mu.RUnlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.teams, m.appointments, m.projects = teams, appts, projects
		m.mu.Unlock()
		return err
	}
	return ctx.Err()
}

func (m *MemoryStore) PutTeam(t models.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t
}

func (m *MemoryStore) PutProject(p models.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

func (m *MemoryStore) PutAppointment(a models.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[a.ID] = a
}

func (m *MemoryStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryStore) GetTeam(ctx context.Context, id string) (models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return models.Team{}, pgx.ErrNoRows
	}
	return t, nil
}

// LockTeam is GetTeam; WithTx already serializes transactions.
func (m *MemoryStore) LockTeam(ctx context.Context, tx pgx.Tx, id string) (models.Team, error) {
	return m.GetTeam(ctx, id)
}

func (m *MemoryStore) LockProject(ctx context.Context, tx pgx.Tx, id string) (models.Project, error) {
	return m.GetProject(ctx, id)
}

func (m *MemoryStore) ListAppointmentsTx(ctx context.Context, tx pgx.Tx, from, to calendar.Date) ([]models.Appointment, error) {
	return m.ListAppointments(ctx, from, to)
}

func (m *MemoryStore) ListProjectAppointmentsTx(ctx context.Context, tx pgx.Tx, projectID string) ([]models.Appointment, error) {
	return m.ListProjectAppointments(ctx, projectID)
}

func (m *MemoryStore) UpdateTeamLoad(ctx context.Context, tx pgx.Tx, teamID string, load int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return pgx.ErrNoRows
	}
	t.CurrentLoad = load
	m.teams[teamID] = t
	return nil
}

func (m *MemoryStore) ListAppointments(ctx context.Context, from, to calendar.Date) ([]models.Appointment, error) {
	return m.filterAppointments(func(a models.Appointment) bool {
		return !a.Date.Before(from) && a.Date.Before(to)
	}), nil
}

func (m *MemoryStore) ListAppointmentGroup(ctx context.Context, id string) ([]models.Appointment, error) {
	m.mu.RLock()
	a, ok := m.appointments[id]
	m.mu.RUnlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	groupID := a.GroupID()
	return m.filterAppointments(func(a models.Appointment) bool {
		return a.GroupID() == groupID
	}), nil
}

func (m *MemoryStore) ListProjectAppointments(ctx context.Context, projectID string) ([]models.Appointment, error) {
	return m.filterAppointments(func(a models.Appointment) bool {
		return a.ProjectID == projectID
	}), nil
}

func (m *MemoryStore) InsertAppointments(ctx context.Context, tx pgx.Tx, appts []models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range appts {
		m.appointments[a.ID] = a
	}
	return nil
}

func (m *MemoryStore) UpdateAppointments(ctx context.Context, tx pgx.Tx, appts []models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range appts {
		if _, ok := m.appointments[a.ID]; !ok {
			return pgx.ErrNoRows
		}
		m.appointments[a.ID] = a
	}
	return nil
}

func (m *MemoryStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return models.Project{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *MemoryStore) ListProjectsByTeam(ctx context.Context, teamID string) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Project
	for _, p := range m.projects {
		if p.TeamID == teamID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateProject(ctx context.Context, tx pgx.Tx, p models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.projects[p.ID] = p
	return nil
}

func (m *MemoryStore) filterAppointments(keep func(models.Appointment) bool) []models.Appointment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
