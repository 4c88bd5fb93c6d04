package repository

import (
	"errors"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	domainRepo "go-cleaning-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type providerRepository struct{}

func NewProviderRepository() domainRepo.ProviderRepository {
	return &providerRepository{}
}

func (r *providerRepository) Create(db *gorm.DB, provider *entity.Provider) error {
	return db.Omit("BlockedDates").Create(provider).Error
}

func (r *providerRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Provider, error) {
	var provider entity.Provider
	err := db.Preload("BlockedDates", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("date ASC")
	}).Where("id = ?", id).First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}

func (r *providerRepository) FindAll(db *gorm.DB) ([]entity.Provider, error) {
	var providers []entity.Provider
	err := db.Preload("BlockedDates").Order("id ASC").Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

// FindAllActive returns only providers that can currently be matched, ordered by id
func (r *providerRepository) FindAllActive(db *gorm.DB) ([]entity.Provider, error) {
	var providers []entity.Provider
	err := db.Preload("BlockedDates").
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *providerRepository) Update(db *gorm.DB, provider *entity.Provider) error {
	return db.Omit("BlockedDates").Save(provider).Error
}

func (r *providerRepository) AddBlockedDate(db *gorm.DB, blocked *entity.ProviderBlockedDate) error {
	return db.Create(blocked).Error
}

func (r *providerRepository) RemoveBlockedDate(db *gorm.DB, providerID uuid.UUID, date time.Time) (int64, error) {
	result := db.Where("provider_id = ? AND date = ?", providerID, datatypes.Date(entity.NormalizeDate(date))).
		Delete(&entity.ProviderBlockedDate{})
	return result.RowsAffected, result.Error
}
