package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"go-cleaning-booking/config"
	"go-cleaning-booking/internal/domain/entity"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// TypeBookingEvent is the asynq task type carrying a BookingEvent payload
const TypeBookingEvent = "booking:event"

// RedisConnOpt points asynq at the queue database of the configured Redis
func RedisConnOpt(redisCfg config.RedisConfig, queueCfg config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       queueCfg.RedisDB,
	}
}

func NewClient(opt asynq.RedisConnOpt) *asynq.Client {
	return asynq.NewClient(opt)
}

// NewServer builds the worker server; logrus satisfies asynq.Logger directly
func NewServer(opt asynq.RedisConnOpt, cfg config.QueueConfig, log *logrus.Logger) *asynq.Server {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	queueName := cfg.Queue
	if queueName == "" {
		queueName = "default"
	}

	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName: 1,
		},
		Logger:          log,
		ShutdownTimeout: 8 * time.Second,
	})
}

// NewBookingEventTask wraps event into a task routed to queueName
func NewBookingEventTask(event entity.BookingEvent, queueName string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, nil, err
	}

	task := asynq.NewTask(TypeBookingEvent, b)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
	}
	if queueName != "" {
		opts = append(opts, asynq.Queue(queueName))
	}

	return task, opts, nil
}

// ParseBookingEventTask decodes the payload written by NewBookingEventTask
func ParseBookingEventTask(task *asynq.Task) (entity.BookingEvent, error) {
	var event entity.BookingEvent
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return event, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return event, nil
}
