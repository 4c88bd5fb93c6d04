package repository

import (
	"time"

	"go-cleaning-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderRepository interface {
	Create(db *gorm.DB, provider *entity.Provider) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Provider, error)
	FindAll(db *gorm.DB) ([]entity.Provider, error)
	FindAllActive(db *gorm.DB) ([]entity.Provider, error)
	Update(db *gorm.DB, provider *entity.Provider) error
	AddBlockedDate(db *gorm.DB, blocked *entity.ProviderBlockedDate) error
	RemoveBlockedDate(db *gorm.DB, providerID uuid.UUID, date time.Time) (int64, error)
}
