package reminders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinic-appointments-server/internal/models"
)

// AppointmentLookup loads an appointment with its patient and doctor.
type AppointmentLookup func(ctx context.Context, id string) (*models.Appointment, error)

// MemoryStore keeps reminders in process.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[string]models.AppointmentReminder
	lookup AppointmentLookup
}

func NewMemoryStore(lookup AppointmentLookup) *MemoryStore {
	return &MemoryStore{rows: make(map[string]models.AppointmentReminder), lookup: lookup}
}

func (s *MemoryStore) Create(ctx context.Context, reminders []models.AppointmentReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, r := range reminders {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.CreatedAt, r.UpdatedAt = now, now
		r.Appointment = models.Appointment{}
		s.rows[r.ID] = r
	}
	return nil
}

func (s *MemoryStore) DeletePending(ctx context.Context, appointmentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.rows {
		if r.AppointmentID == appointmentID && r.Status == models.ReminderPending {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Due(ctx context.Context, now time.Time, limit int) ([]models.AppointmentReminder, error) {
	s.mu.Lock()
	var due []models.AppointmentReminder
	for _, r := range s.rows {
		if r.Status == models.ReminderPending && !r.ScheduledFor.After(now) {
			due = append(due, r)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		appt, err := s.lookup(ctx, due[i].AppointmentID)
		if err != nil {
			return nil, err
		}
		due[i].Appointment = *appt
	}
	return due, nil
}

func (s *MemoryStore) Transition(ctx context.Context, id string, from, to models.ReminderStatus, sentAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.SentAt = sentAt
	r.UpdatedAt = time.Now()
	s.rows[id] = r
	return true, nil
}

// All returns every stored reminder ordered by send time.
func (s *MemoryStore) All() []models.AppointmentReminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]models.AppointmentReminder, 0, len(s.rows))
	for _, r := range s.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ScheduledFor.Before(rows[j].ScheduledFor) })
	return rows
}
