package orchestrator

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// defaultSchedule runs the daily cycle at 09:00 local time.
const defaultSchedule = "0 9 * * *"

// Scheduler runs the daily cycle on a cron schedule for daemon mode.
type Scheduler struct {
	orch *Orchestrator
	cron *cron.Cron
	log  *logrus.Entry
}

func NewScheduler(orch *Orchestrator) *Scheduler {
	return &Scheduler{
		orch: orch,
		cron: cron.New(),
		log:  logrus.WithField("component", "scheduler"),
	}
}

// Start registers the daily job and starts the cron loop. An empty spec
// uses the default morning schedule.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = defaultSchedule
	}

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		summary, err := s.orch.RunDaily(ctx)
		if err != nil {
			s.log.Error(err)
			return
		}
		s.log.WithFields(logrus.Fields{
			"found":   summary.JobsFound,
			"queued":  summary.Queued,
			"applied": summary.Applied,
			"failed":  summary.Failed,
		}).Info("daily run finished")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.WithField("schedule", spec).Info("scheduler started")
	return nil
}

// Stop ends the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
