package scheduling

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinic-appointments-server/internal/models"
)

// MemoryStore is an in-process Store for local runs and tests. A transaction
// holds the store mutex for its whole duration, so transactions are serial.
type MemoryStore struct {
	data *memoryData
	inTx bool
}

type memoryData struct {
	mu           sync.Mutex
	users        map[string]models.User
	weekly       map[string]models.WeeklyAvailability // doctorID|day
	exceptions   map[string]models.AvailabilityException
	appointments map[string]models.Appointment
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{
		users:        make(map[string]models.User),
		weekly:       make(map[string]models.WeeklyAvailability),
		exceptions:   make(map[string]models.AvailabilityException),
		appointments: make(map[string]models.Appointment),
	}}
}

// PutUser adds or replaces a directory entry.
func (s *MemoryStore) PutUser(u models.User) models.User {
	defer s.lock()()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	s.data.users[u.ID] = u
	return u
}

// User returns a directory entry.
func (s *MemoryStore) User(id string) (models.User, bool) {
	defer s.lock()()
	u, ok := s.data.users[id]
	return u, ok
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.data.mu.Lock()
	return s.data.mu.Unlock
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&MemoryStore{data: s.data, inTx: true}); err != nil {
		s.data.restore(snapshot)
		return err
	}
	return nil
}

func (s *MemoryStore) LockDoctor(ctx context.Context, doctorID string) error {
	defer s.lock()()
	u, ok := s.data.users[doctorID]
	if !ok || u.Role != models.RoleDoctor || !u.IsActive {
		return ErrDoctorNotFound
	}
	return nil
}

func (s *MemoryStore) LockAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	defer s.lock()()
	appt, ok := s.data.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &appt, nil
}

func weeklyKey(doctorID string, day int) string {
	return doctorID + "|" + strconv.Itoa(day)
}

func (s *MemoryStore) GetWeekly(ctx context.Context, doctorID string, dayOfWeek int) (*models.WeeklyAvailability, error) {
	defer s.lock()()
	w, ok := s.data.weekly[weeklyKey(doctorID, dayOfWeek)]
	if !ok {
		return nil, ErrWeeklyNotFound
	}
	return &w, nil
}

func (s *MemoryStore) ListWeekly(ctx context.Context, doctorID string) ([]models.WeeklyAvailability, error) {
	defer s.lock()()
	var rows []models.WeeklyAvailability
	for _, w := range s.data.weekly {
		if w.DoctorID == doctorID {
			rows = append(rows, w)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DayOfWeek < rows[j].DayOfWeek })
	return rows, nil
}

func (s *MemoryStore) UpsertWeekly(ctx context.Context, w *models.WeeklyAvailability) error {
	defer s.lock()()
	if _, ok := s.data.users[w.DoctorID]; !ok {
		return ErrInvalidReference
	}
	key := weeklyKey(w.DoctorID, w.DayOfWeek)
	now := time.Now()
	if existing, ok := s.data.weekly[key]; ok {
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
	} else {
		if w.ID == "" {
			w.ID = uuid.New().String()
		}
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	s.data.weekly[key] = *w
	return nil
}

func (s *MemoryStore) GetException(ctx context.Context, doctorID, date string) (*models.AvailabilityException, error) {
	defer s.lock()()
	for _, e := range s.data.exceptions {
		if e.DoctorID == doctorID && e.Date == date {
			return &e, nil
		}
	}
	return nil, ErrExceptionNotFound
}

func (s *MemoryStore) GetExceptionByID(ctx context.Context, id string) (*models.AvailabilityException, error) {
	defer s.lock()()
	e, ok := s.data.exceptions[id]
	if !ok {
		return nil, ErrExceptionNotFound
	}
	return &e, nil
}

func (s *MemoryStore) ListExceptions(ctx context.Context, doctorID string) ([]models.AvailabilityException, error) {
	defer s.lock()()
	var rows []models.AvailabilityException
	for _, e := range s.data.exceptions {
		if e.DoctorID == doctorID {
			rows = append(rows, e)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

func (s *MemoryStore) CreateException(ctx context.Context, e *models.AvailabilityException) error {
	defer s.lock()()
	if _, ok := s.data.users[e.DoctorID]; !ok {
		return ErrInvalidReference
	}
	for _, existing := range s.data.exceptions {
		if existing.DoctorID == e.DoctorID && existing.Date == e.Date {
			return ErrDuplicateException
		}
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	s.data.exceptions[e.ID] = *e
	return nil
}

func (s *MemoryStore) DeleteException(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.exceptions[id]; !ok {
		return ErrExceptionNotFound
	}
	delete(s.data.exceptions, id)
	return nil
}

func (s *MemoryStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	defer s.lock()()
	appt, ok := s.data.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	s.data.attachUsers(&appt)
	return &appt, nil
}

func (s *MemoryStore) GetAppointmentByQRToken(ctx context.Context, token string) (*models.Appointment, error) {
	defer s.lock()()
	for _, appt := range s.data.appointments {
		if appt.QRToken == token {
			s.data.attachUsers(&appt)
			return &appt, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (s *MemoryStore) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	defer s.lock()()
	var rows []models.Appointment
	for _, appt := range s.data.appointments {
		if filter.Status != "" && appt.Status != filter.Status {
			continue
		}
		if filter.DoctorID != "" && appt.DoctorID != filter.DoctorID {
			continue
		}
		if filter.PatientID != "" && appt.PatientID != filter.PatientID {
			continue
		}
		if filter.From != nil && appt.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && appt.ScheduledAt.After(*filter.To) {
			continue
		}
		s.data.attachUsers(&appt)
		rows = append(rows, appt)
	}
	sortByStart(rows)
	return rows, nil
}

func (s *MemoryStore) ListStartingBetween(ctx context.Context, doctorID string, from, to time.Time, exclude []models.AppointmentStatus) ([]models.Appointment, error) {
	defer s.lock()()
	var rows []models.Appointment
	for _, appt := range s.data.appointments {
		if appt.DoctorID != doctorID || statusIn(appt.Status, exclude) {
			continue
		}
		if appt.ScheduledAt.Before(from) || !appt.ScheduledAt.Before(to) {
			continue
		}
		rows = append(rows, appt)
	}
	sortByStart(rows)
	return rows, nil
}

func (s *MemoryStore) ListOverlapping(ctx context.Context, doctorID string, start, end time.Time, exclude []models.AppointmentStatus) ([]models.Appointment, error) {
	defer s.lock()()
	var rows []models.Appointment
	for _, appt := range s.data.appointments {
		if appt.DoctorID != doctorID || statusIn(appt.Status, exclude) {
			continue
		}
		if Overlaps(start, end, appt.ScheduledAt, appt.End()) {
			rows = append(rows, appt)
		}
	}
	sortByStart(rows)
	return rows, nil
}

func (s *MemoryStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	defer s.lock()()
	if _, ok := s.data.users[a.PatientID]; !ok {
		return ErrInvalidReference
	}
	if _, ok := s.data.users[a.DoctorID]; !ok {
		return ErrInvalidReference
	}
	for _, existing := range s.data.appointments {
		if existing.QRToken == a.QRToken {
			return ErrDuplicateRecord
		}
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	a.EndsAt = a.End()
	s.data.appointments[a.ID] = detach(*a)
	return nil
}

func (s *MemoryStore) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	defer s.lock()()
	if _, ok := s.data.appointments[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now()
	a.EndsAt = a.End()
	s.data.appointments[a.ID] = detach(*a)
	return nil
}

func (d *memoryData) attachUsers(appt *models.Appointment) {
	appt.Patient = d.users[appt.PatientID]
	appt.Doctor = d.users[appt.DoctorID]
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		users:        make(map[string]models.User, len(d.users)),
		weekly:       make(map[string]models.WeeklyAvailability, len(d.weekly)),
		exceptions:   make(map[string]models.AvailabilityException, len(d.exceptions)),
		appointments: make(map[string]models.Appointment, len(d.appointments)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.weekly {
		c.weekly[k] = v
	}
	for k, v := range d.exceptions {
		c.exceptions[k] = v
	}
	for k, v := range d.appointments {
		c.appointments[k] = v
	}
	return c
}

func (d *memoryData) restore(from *memoryData) {
	d.users = from.users
	d.weekly = from.weekly
	d.exceptions = from.exceptions
	d.appointments = from.appointments
}

// detach drops preloaded relations before storing a value.
func detach(a models.Appointment) models.Appointment {
	a.Patient = models.User{}
	a.Doctor = models.User{}
	return a
}

func sortByStart(rows []models.Appointment) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ScheduledAt.Before(rows[j].ScheduledAt) })
}
