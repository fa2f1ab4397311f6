package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/notify"
)

func TestPlanKeepsFutureOffsets(t *testing.T) {
	appt := time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC)

	all := Plan(appt, DefaultOffsets, appt.Add(-48*time.Hour))
	assert.Equal(t, []time.Time{appt.Add(-24 * time.Hour), appt.Add(-2 * time.Hour)}, all)

	late := Plan(appt, DefaultOffsets, appt.Add(-3*time.Hour))
	assert.Equal(t, []time.Time{appt.Add(-2 * time.Hour)}, late)

	assert.Empty(t, Plan(appt, DefaultOffsets, appt.Add(-time.Hour)))
}

type appointmentBook struct {
	appts map[string]*models.Appointment
}

func (b *appointmentBook) lookup(_ context.Context, id string) (*models.Appointment, error) {
	appt, ok := b.appts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *appt
	return &copied, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, msg notify.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[msg.To] {
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestScheduler(store Store, now time.Time) *Scheduler {
	s := NewScheduler(store, nil, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestSchedulerScheduleReplaceCancel(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC)
	store := NewMemoryStore((&appointmentBook{}).lookup)
	s := newTestScheduler(store, start.Add(-72*time.Hour))

	n, err := s.Schedule(ctx, "appt-1", start)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	moved := start.Add(24 * time.Hour)
	n, err = s.Replace(ctx, "appt-1", moved)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := store.All()
	require.Len(t, rows, 2)
	assert.Equal(t, moved.Add(-24*time.Hour), rows[0].ScheduledFor)
	assert.Equal(t, ChannelEmail, rows[0].Channel)
	assert.Equal(t, models.ReminderPending, rows[1].Status)

	removed, err := s.CancelPending(ctx, "appt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Empty(t, store.All())
}

func TestSweeperProcessDue(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC)
	book := &appointmentBook{appts: map[string]*models.Appointment{
		"ok":        {ScheduledAt: start, Status: models.StatusScheduled, Patient: models.User{FirstName: "Pia", Email: "pia@mail.test"}},
		"bounce":    {ScheduledAt: start, Status: models.StatusConfirmed, Patient: models.User{FirstName: "Bo", Email: "bo@mail.test"}},
		"cancelled": {ScheduledAt: start, Status: models.StatusCancelled, Patient: models.User{FirstName: "Cy", Email: "cy@mail.test"}},
	}}
	store := NewMemoryStore(book.lookup)
	scheduler := newTestScheduler(store, start.Add(-72*time.Hour))
	for id := range book.appts {
		_, err := scheduler.Schedule(ctx, id, start)
		require.NoError(t, err)
	}

	sender := &fakeSender{fail: map[string]bool{"bo@mail.test": true}}
	sweeper := NewSweeper(store, sender, time.UTC, time.Hour, nil, zerolog.Nop())
	// Only the 24h reminders are due.
	sweeper.now = func() time.Time { return start.Add(-23 * time.Hour) }

	result, err := sweeper.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Sent: 1, Failed: 2}, result)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "pia@mail.test", sender.sent[0].To)

	again, err := sweeper.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, again)

	pending := 0
	for _, r := range store.All() {
		if r.Status == models.ReminderPending {
			pending++
			continue
		}
		if r.Status == models.ReminderSent {
			assert.NotNil(t, r.SentAt)
		}
	}
	assert.Equal(t, 3, pending)
}

func TestSweeperStartStopsWithContext(t *testing.T) {
	store := NewMemoryStore((&appointmentBook{}).lookup)
	sweeper := NewSweeper(store, &fakeSender{}, time.UTC, time.Millisecond, nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestGormStoreTransitionIsConditional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewGormStore(gdb)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `appointment_reminders` SET .* WHERE id = .* AND status = ").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	moved, err := store.Transition(context.Background(), "r1", models.ReminderPending, models.ReminderSending, nil)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// gatedSender blocks inside Send until released.
type gatedSender struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	sent    int
}

func (g *gatedSender) Send(_ context.Context, _ notify.EmailMessage) error {
	g.entered <- struct{}{}
	<-g.release
	g.mu.Lock()
	g.sent++
	g.mu.Unlock()
	return nil
}

// staleDue replays rows read before another sweep claimed them.
type staleDue struct {
	Store
	rows []models.AppointmentReminder
}

func (s *staleDue) Due(context.Context, time.Time, int) ([]models.AppointmentReminder, error) {
	rows := s.rows
	s.rows = nil
	return rows, nil
}

func TestOverlappingSweepsSendOnce(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC)
	book := &appointmentBook{appts: map[string]*models.Appointment{
		"a1": {ScheduledAt: start, Status: models.StatusScheduled, Patient: models.User{FirstName: "Pia", Email: "pia@mail.test"}},
	}}
	store := NewMemoryStore(book.lookup)
	require.NoError(t, store.Create(ctx, []models.AppointmentReminder{{
		AppointmentID: "a1", Channel: ChannelEmail, ScheduledFor: start.Add(-2 * time.Hour), Status: models.ReminderPending,
	}}))
	dueAt := func() time.Time { return start.Add(-time.Hour) }

	// Both sweeps read the row while it is still pending.
	snapshot, err := store.Due(ctx, dueAt(), sweepBatchSize)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	sender := &gatedSender{entered: make(chan struct{}, 2), release: make(chan struct{})}
	first := NewSweeper(store, sender, time.UTC, time.Hour, nil, zerolog.Nop())
	first.now = dueAt
	second := NewSweeper(&staleDue{Store: store, rows: snapshot}, sender, time.UTC, time.Hour, nil, zerolog.Nop())
	second.now = dueAt

	firstDone := make(chan SweepResult, 1)
	go func() {
		result, err := first.ProcessDue(ctx)
		assert.NoError(t, err)
		firstDone <- result
	}()
	<-sender.entered

	// The first sweep is mid-delivery; the second must not deliver again.
	result, err := second.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Skipped: 1}, result)

	close(sender.release)
	assert.Equal(t, SweepResult{Sent: 1}, <-firstDone)
	assert.Equal(t, 1, sender.sent)

	rows := store.All()
	require.Len(t, rows, 1)
	assert.Equal(t, models.ReminderSent, rows[0].Status)
}

func TestConcurrentSweepsDeliverEachRowOnce(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC)
	book := &appointmentBook{appts: map[string]*models.Appointment{}}
	var rows []models.AppointmentReminder
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("a%d", i)
		book.appts[id] = &models.Appointment{ScheduledAt: start, Status: models.StatusScheduled,
			Patient: models.User{FirstName: "P", Email: id + "@mail.test"}}
		rows = append(rows, models.AppointmentReminder{AppointmentID: id, Channel: ChannelEmail,
			ScheduledFor: start.Add(-2 * time.Hour), Status: models.ReminderPending})
	}
	store := NewMemoryStore(book.lookup)
	require.NoError(t, store.Create(ctx, rows))

	sender := &fakeSender{}
	var wg sync.WaitGroup
	results := make([]SweepResult, 4)
	for i := range results {
		sweeper := NewSweeper(store, sender, time.UTC, time.Hour, nil, zerolog.Nop())
		sweeper.now = func() time.Time { return start.Add(-time.Hour) }
		sweeper.batchSize = 3
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := sweeper.ProcessDue(ctx)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += r.Sent
	}
	assert.Equal(t, 20, total)
	assert.Len(t, sender.sent, 20)
	seen := map[string]bool{}
	for _, msg := range sender.sent {
		assert.False(t, seen[msg.To], "duplicate email to %s", msg.To)
		seen[msg.To] = true
	}
}

func TestSweeperDrainsBacklogInOnePass(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC)
	book := &appointmentBook{appts: map[string]*models.Appointment{
		"a1": {ScheduledAt: start, Status: models.StatusScheduled, Patient: models.User{FirstName: "Pia", Email: "pia@mail.test"}},
	}}
	store := NewMemoryStore(book.lookup)
	var rows []models.AppointmentReminder
	for i := 0; i < 7; i++ {
		rows = append(rows, models.AppointmentReminder{AppointmentID: "a1", Channel: ChannelEmail,
			ScheduledFor: start.Add(-time.Duration(i+2) * time.Hour), Status: models.ReminderPending})
	}
	require.NoError(t, store.Create(ctx, rows))

	sender := &fakeSender{}
	sweeper := NewSweeper(store, sender, time.UTC, time.Hour, nil, zerolog.Nop())
	sweeper.now = func() time.Time { return start.Add(-time.Hour) }
	sweeper.batchSize = 3

	result, err := sweeper.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Sent: 7}, result)
	assert.Len(t, sender.sent, 7)
}
