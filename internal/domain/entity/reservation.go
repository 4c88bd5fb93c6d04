package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reservation is the token returned when one unit of a provider's daily
// capacity has been claimed for a slot.
type Reservation struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       time.Time `json:"date"`
	Slot       Slot      `json:"-"`
	ReservedAt time.Time `json:"reserved_at"`
}

// Key is the capacity cell the reservation was taken from
func (r Reservation) Key() CapacityKey {
	return NewCapacityKey(r.ProviderID, r.Date)
}

// CapacityKey identifies the per-provider, per-date capacity cell
type CapacityKey struct {
	ProviderID uuid.UUID
	Date       time.Time
}

func NewCapacityKey(providerID uuid.UUID, date time.Time) CapacityKey {
	return CapacityKey{ProviderID: providerID, Date: NormalizeDate(date)}
}

func (k CapacityKey) String() string {
	return fmt.Sprintf("%s:%s", k.ProviderID, FormatDate(k.Date))
}
