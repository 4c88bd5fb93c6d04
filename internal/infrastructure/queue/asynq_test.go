package queue

import (
	"testing"
	"time"

	"go-cleaning-booking/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingEventTaskRoundTrip(t *testing.T) {
	providerID := uuid.New()
	event := entity.BookingEvent{
		Type:           entity.BookingEventConfirmed,
		BookingID:      uuid.New(),
		BookingCode:    "BK-20261021-ABCDEF",
		Status:         entity.BookingStatusConfirmed,
		PreviousStatus: entity.BookingStatusPending,
		ProviderID:     &providerID,
		Date:           "2026-10-21",
		Slot:           "08:00-10:00",
		OccurredAt:     time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}

	task, opts, err := NewBookingEventTask(event, "critical")
	require.NoError(t, err)
	assert.Equal(t, TypeBookingEvent, task.Type())
	assert.Len(t, opts, 3)

	decoded, err := ParseBookingEventTask(task)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestParseBookingEventTaskRejectsGarbage(t *testing.T) {
	_, err := ParseBookingEventTask(asynq.NewTask(TypeBookingEvent, []byte("{not json")))
	assert.Error(t, err)
}
