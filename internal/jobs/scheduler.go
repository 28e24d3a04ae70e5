// Package jobs runs the periodic rent reminder. Reminder entries go
// onto a Redis stream so a notification worker can pick them up
// without coupling it to this process.
package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"skyview/api/internal/config"
	"skyview/api/internal/workflow"
)

type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	engine *workflow.Engine
	cfg    config.ReminderConfig
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, engine *workflow.Engine, cfg config.ReminderConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		engine: engine,
		cfg:    cfg,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Spec, s.enqueueRentReminders); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		s.cron.Stop()
		cancel()
	}()
	return cancel
}

// enqueueRentReminders publishes one reminder entry per current member.
// Failures are logged and skipped; the next cron tick retries everyone.
func (s *Scheduler) enqueueRentReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	members, err := s.engine.ListMembers(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("rent reminder member listing failed")
		return
	}

	month := time.Now().Format("January 2006")
	for _, member := range members {
		if member.RentedApartment == nil {
			continue
		}
		err := s.enqueue(ctx, map[string]any{
			"type":        "rent_reminder",
			"memberEmail": member.Email,
			"month":       month,
			"rent":        member.RentedApartment.Rent,
			"apartmentNo": member.RentedApartment.ApartmentNo,
		})
		if err != nil {
			s.log.Error().Err(err).Str("email", member.Email).Msg("enqueue rent reminder failed")
		}
	}
	s.log.Info().Int("members", len(members)).Str("month", month).Msg("rent reminders enqueued")
}

func (s *Scheduler) enqueue(ctx context.Context, payload map[string]any) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.Stream,
		Values: payload,
	}).Result()
	return err
}
