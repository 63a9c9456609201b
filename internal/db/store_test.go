package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/planner/internal/calendar"
	"github.com/fieldops/planner/internal/models"
)

func openIntegrationStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := New(ctx, url)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestStoreRoundTripIntegration(t *testing.T) {
	store := openIntegrationStore(t)
	ctx := context.Background()

	day, _ := calendar.ParseDate("2026-10-15")
	team := models.Team{
		ID:        "it-team",
		Name:      "Integration",
		Expertise: []string{"pac"},
		IsActive:  true,
		Schedule: []models.DaySchedule{{Date: day, TimeSlots: []models.TimeSlot{
			{Start: calendar.NewClock(8, 0), End: calendar.NewClock(12, 0), IsAvailable: true},
		}}},
	}
	if err := store.UpsertTeam(ctx, team); err != nil {
		t.Fatalf("upsert team: %v", err)
	}
	got, err := store.GetTeam(ctx, team.ID)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if len(got.Schedule) != 1 || !got.Schedule[0].Date.Equal(day) || got.Schedule[0].TimeSlots[0].End.String() != "12:00" {
		t.Fatalf("schedule did not round trip: %+v", got.Schedule)
	}

	teamID := team.ID
	appt := models.Appointment{ID: "it-appt", Date: day, StartTime: calendar.NewClock(8, 0), TeamID: &teamID, Status: models.StatusAssigned, DaysSpan: 1, IsFirstDay: true, IsLastDay: true, Hours: 4}
	err = store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, appt.ID); err != nil {
			return err
		}
		return store.InsertAppointments(ctx, tx, []models.Appointment{appt})
	})
	if err != nil {
		t.Fatalf("insert appointment: %v", err)
	}
	listed, err := store.ListAppointments(ctx, day, day.AddDays(1))
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}
	found := false
	for _, a := range listed {
		if a.ID == appt.ID && a.Hours == 4 && a.StartTime.String() == "08:00" {
			found = true
		}
	}
	if !found {
		t.Fatalf("inserted appointment not listed: %+v", listed)
	}
}

func TestLockTeamSerializesIntegration(t *testing.T) {
	store := openIntegrationStore(t)
	ctx := context.Background()
	team := models.Team{ID: "it-lock", Name: "Lock", Expertise: []string{"pac"}, IsActive: true}
	if err := store.UpsertTeam(ctx, team); err != nil {
		t.Fatalf("upsert team: %v", err)
	}
	if err := store.WithTx(ctx, func(tx pgx.Tx) error {
		return store.UpdateTeamLoad(ctx, tx, team.ID, 0)
	}); err != nil {
		t.Fatalf("reset load: %v", err)
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- store.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := store.LockTeam(ctx, tx, team.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return store.UpdateTeamLoad(ctx, tx, team.ID, 20)
		})
	}()
	select {
	case <-locked:
	case err := <-first:
		t.Fatalf("first tx failed before locking: %v", err)
	}

	seen := -1
	second := make(chan error, 1)
	go func() {
		second <- store.WithTx(ctx, func(tx pgx.Tx) error {
			got, err := store.LockTeam(ctx, tx, team.ID)
			seen = got.CurrentLoad
			return err
		})
	}()
	time.Sleep(100 * time.Millisecond)
	close(release)

	if err := <-first; err != nil {
		t.Fatalf("first tx: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second tx: %v", err)
	}
	if seen != 20 {
		t.Fatalf("second lock should see the committed load 20, got %d", seen)
	}
}
