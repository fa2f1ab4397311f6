// Package waitlist keeps patients waiting for a freed slot and tells the
// longest-waiting one when a doctor's appointment is cancelled.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/scheduling"
)

var ErrEntryNotFound = fmt.Errorf("%w: waiting list entry not found", scheduling.ErrNotFound)

// Store persists waiting-list entries.
type Store interface {
	List(ctx context.Context) ([]models.WaitingListEntry, error)
	Get(ctx context.Context, id string) (*models.WaitingListEntry, error)
	Create(ctx context.Context, entry *models.WaitingListEntry) error
	Delete(ctx context.Context, id string) error
	// ClaimOldest marks the oldest un-notified entry for doctorID as notified
	// at now and returns it with its patient loaded. It returns nil when no
	// entry is waiting.
	ClaimOldest(ctx context.Context, doctorID string, now time.Time) (*models.WaitingListEntry, error)
}

// GormStore keeps the waiting list in MySQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) List(ctx context.Context) ([]models.WaitingListEntry, error) {
	var entries []models.WaitingListEntry
	err := s.db.WithContext(ctx).
		Preload("Patient").Preload("Doctor").
		Order("created_at asc").
		Find(&entries).Error
	return entries, err
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.WaitingListEntry, error) {
	var entry models.WaitingListEntry
	err := s.db.WithContext(ctx).Preload("Patient").Preload("Doctor").First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GormStore) Create(ctx context.Context, entry *models.WaitingListEntry) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1452 {
		return scheduling.ErrInvalidReference
	}
	return err
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.WaitingListEntry{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *GormStore) ClaimOldest(ctx context.Context, doctorID string, now time.Time) (*models.WaitingListEntry, error) {
	var claimed *models.WaitingListEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.WaitingListEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("doctor_id = ? AND notified_at IS NULL", doctorID).
			Order("created_at asc").
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&entry).Update("notified_at", now).Error; err != nil {
			return err
		}
		if err := tx.Preload("Patient").Preload("Doctor").First(&entry, "id = ?", entry.ID).Error; err != nil {
			return err
		}
		claimed = &entry
		return nil
	})
	return claimed, err
}
