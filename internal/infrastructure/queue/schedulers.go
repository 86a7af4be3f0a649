package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"paygate/internal/shared"
	"paygate/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisAddress string) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{scheduler: scheduler}
}

func (s *Scheduler) RegisterPaymentJobs() error {
	return s.registerExpireStalePaymentsJob()
}

// ================================================
// JOB: Expire Stale Payments (Every 5 minutes)
// ================================================
// Pending rows past the payment window must stop blocking orders
// quickly, and the sweep is cheap (single indexed UPDATE).
func (s *Scheduler) registerExpireStalePaymentsJob() error {
	payload, err := json.Marshal(shared.ExpireStalePaymentsPayload{})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeExpireStalePayments, payload)

	_, err = s.scheduler.Register(
		"*/5 * * * *", // Every 5 minutes
		task,
		asynq.Queue(shared.QueuePayments),
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register ExpireStalePayments job", err)
		return err
	}

	logger.Info("Registered ExpireStalePayments: every 5 minutes", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
