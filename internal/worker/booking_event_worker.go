package worker

import (
	"context"
	"fmt"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/infrastructure/queue"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Notifier delivers a booking event to the outside world (email, SMS, CRM)
type Notifier interface {
	Notify(ctx context.Context, event entity.BookingEvent) error
}

type logNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier records notifications in the log instead of sending them
func NewLogNotifier(log *logrus.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) Notify(ctx context.Context, event entity.BookingEvent) error {
	n.log.WithFields(logrus.Fields{
		"event":        event.Type,
		"booking_code": event.BookingCode,
		"customer_ref": event.CustomerRef,
		"date":         event.Date,
		"slot":         event.Slot,
	}).Info("Notify customer")
	return nil
}

// BookingEventWorker consumes booking:event tasks
type BookingEventWorker struct {
	notifier Notifier
	log      *logrus.Logger
}

func NewBookingEventWorker(notifier Notifier, log *logrus.Logger) *BookingEventWorker {
	return &BookingEventWorker{
		notifier: notifier,
		log:      log,
	}
}

// Register mounts the worker on mux
func (w *BookingEventWorker) Register(mux *asynq.ServeMux) {
	mux.Handle(queue.TypeBookingEvent, w)
}

// ProcessTask implements asynq.Handler. Undecodable payloads are not retried.
func (w *BookingEventWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	event, err := queue.ParseBookingEventTask(task)
	if err != nil {
		w.log.Warnf("Dropping malformed booking event: %+v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := w.notifier.Notify(ctx, event); err != nil {
		w.log.Warnf("Failed to notify for %s on booking %s: %+v", event.Type, event.BookingCode, err)
		return err
	}

	w.log.Debugf("Processed %s for booking %s", event.Type, event.BookingCode)
	return nil
}
