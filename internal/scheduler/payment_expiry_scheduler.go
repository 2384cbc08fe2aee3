package scheduler

import (
	"context"
	"time"

	"github.com/eternaldev/recipe-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const DefaultExpirySchedule = "@every 10m"

// PaymentExpirer is the part of the payment service the scheduler drives.
type PaymentExpirer interface {
	ExpireStalePayments(ctx context.Context, now time.Time) (int, error)
}

// PaymentExpiryScheduler periodically cancels orders whose payment was never completed.
type PaymentExpiryScheduler struct {
	cron     *cron.Cron
	expirer  PaymentExpirer
	schedule string
	timeout  time.Duration
}

func NewPaymentExpiryScheduler(expirer PaymentExpirer, schedule string) *PaymentExpiryScheduler {
	if schedule == "" {
		schedule = DefaultExpirySchedule
	}
	return &PaymentExpiryScheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expirer:  expirer,
		schedule: schedule,
		timeout:  time.Minute,
	}
}

// Start registers the job and starts the cron loop.
func (s *PaymentExpiryScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Run); err != nil {
		logger.Error("Failed to add cron job for payment expiry", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Payment expiry scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

// Run performs one expiry sweep.
func (s *PaymentExpiryScheduler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	expired, err := s.expirer.ExpireStalePayments(ctx, time.Now())
	if err != nil {
		logger.Error("Scheduled payment expiry failed", err)
		return
	}
	if expired > 0 {
		logger.Info("Expired stale payments", map[string]interface{}{
			"count": expired,
		})
	}
}

// Stop waits for a running sweep to finish.
func (s *PaymentExpiryScheduler) Stop() {
	logger.Info("Stopping payment expiry scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Payment expiry scheduler stopped")
}
