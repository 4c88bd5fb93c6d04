package service

import (
	"context"
	"fmt"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/infrastructure/queue"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// EventPublisher hands committed booking events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event entity.BookingEvent) error
}

type asynqEventPublisher struct {
	client    *asynq.Client
	queueName string
	log       *logrus.Logger
}

// NewAsynqEventPublisher enqueues each event as a booking:event task
func NewAsynqEventPublisher(client *asynq.Client, queueName string, log *logrus.Logger) EventPublisher {
	return &asynqEventPublisher{
		client:    client,
		queueName: queueName,
		log:       log,
	}
}

func (p *asynqEventPublisher) Publish(ctx context.Context, event entity.BookingEvent) error {
	task, opts, err := queue.NewBookingEventTask(event, p.queueName)
	if err != nil {
		return err
	}

	info, err := p.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s for booking %s: %w", event.Type, event.BookingCode, err)
	}

	p.log.Debugf("Enqueued %s for booking %s as task %s", event.Type, event.BookingCode, info.ID)
	return nil
}

type logEventPublisher struct {
	log *logrus.Logger
}

// NewLogEventPublisher writes events to the log. It is used when no queue is configured.
func NewLogEventPublisher(log *logrus.Logger) EventPublisher {
	return &logEventPublisher{log: log}
}

func (p *logEventPublisher) Publish(ctx context.Context, event entity.BookingEvent) error {
	p.log.WithFields(logrus.Fields{
		"event":        event.Type,
		"booking_id":   event.BookingID,
		"booking_code": event.BookingCode,
		"status":       event.Status,
		"date":         event.Date,
		"slot":         event.Slot,
	}).Info("Booking event")
	return nil
}
