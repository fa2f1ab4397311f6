package waitlist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/scheduling"
)

// UserLookup resolves a directory entry.
type UserLookup func(id string) (models.User, bool)

// MemoryStore keeps the waiting list in process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]models.WaitingListEntry
	order   []string // insertion order
	users   UserLookup
}

func NewMemoryStore(users UserLookup) *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.WaitingListEntry), users: users}
}

func (s *MemoryStore) attach(entry *models.WaitingListEntry) {
	entry.Patient, _ = s.users(entry.PatientID)
	entry.Doctor = nil
	if entry.DoctorID != nil {
		if doctor, ok := s.users(*entry.DoctorID); ok {
			entry.Doctor = &doctor
		}
	}
}

func (s *MemoryStore) ordered() []models.WaitingListEntry {
	entries := make([]models.WaitingListEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	return entries
}

func (s *MemoryStore) List(ctx context.Context) ([]models.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.ordered()
	for i := range entries {
		s.attach(&entries[i])
	}
	return entries, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	s.attach(&entry)
	return &entry, nil
}

func (s *MemoryStore) Create(ctx context.Context, entry *models.WaitingListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users(entry.PatientID); !ok {
		return scheduling.ErrInvalidReference
	}
	if entry.DoctorID != nil {
		if _, ok := s.users(*entry.DoctorID); !ok {
			return scheduling.ErrInvalidReference
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	stored := *entry
	stored.Patient, stored.Doctor = models.User{}, nil
	s.entries[entry.ID] = stored
	s.order = append(s.order, entry.ID)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(s.entries, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) ClaimOldest(ctx context.Context, doctorID string, now time.Time) (*models.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.ordered() {
		if entry.DoctorID == nil || *entry.DoctorID != doctorID || entry.NotifiedAt != nil {
			continue
		}
		notified := now
		entry.NotifiedAt = &notified
		s.entries[entry.ID] = entry
		s.attach(&entry)
		return &entry, nil
	}
	return nil, nil
}
