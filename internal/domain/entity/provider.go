package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provider is a service professional with a recurring weekly pattern of
// named windows and a per-date booking ceiling.
type Provider struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName        string                      `gorm:"type:varchar(255);not null" json:"display_name"`
	WeeklyAvailability datatypes.JSONSlice[string] `json:"weekly_availability"`
	ServiceAreas       datatypes.JSONSlice[string] `json:"service_areas"`
	MaxDailyBookings   int                         `gorm:"not null" json:"max_daily_bookings"`
	IsActive           bool                        `gorm:"not null;index" json:"is_active"`
	CreatedAt          time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	BlockedDates []ProviderBlockedDate `gorm:"foreignKey:ProviderID;constraint:OnDelete:CASCADE" json:"blocked_dates,omitempty"`
}

func (Provider) TableName() string {
	return "providers"
}

func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasWindow reports whether label is one of the provider's weekly windows
func (p *Provider) HasWindow(label string) bool {
	for _, window := range p.WeeklyAvailability {
		if window == label {
			return true
		}
	}
	return false
}

// IsBlockedOn reports whether the calendar date of date is blocked
func (p *Provider) IsBlockedOn(date time.Time) bool {
	day := NormalizeDate(date)
	for _, blocked := range p.BlockedDates {
		if NormalizeDate(time.Time(blocked.Date)).Equal(day) {
			return true
		}
	}
	return false
}

// CoversArea reports whether the provider serves the given postal code
func (p *Provider) CoversArea(postalCode string) bool {
	code := NormalizePostalCode(postalCode)
	for _, area := range p.ServiceAreas {
		if NormalizePostalCode(area) == code {
			return true
		}
	}
	return false
}

// NormalizePostalCode upper-cases and strips whitespace
func NormalizePostalCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// ProviderBlockedDate is a calendar date on which the provider takes no work
type ProviderBlockedDate struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_provider_blocked_date" json:"provider_id"`
	Date       datatypes.Date `gorm:"type:date;not null;uniqueIndex:idx_provider_blocked_date" json:"date"`
	Reason     string         `gorm:"type:varchar(255)" json:"reason,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (ProviderBlockedDate) TableName() string {
	return "provider_blocked_dates"
}
