/*
scheduler.go - Scheduled re-evaluation sweep

PURPOSE:
  Month and week windows roll over at midnight with no status mutation to
  trigger a pass, so period-scoped awards would otherwise go stale: a
  month-window streak earned in July must not satisfy August, and the
  current week's threshold tag changes every Monday. The sweep re-runs the
  evaluation pass for every affiliate on a cron schedule.

DESIGN:
  - robfig/cron drives the schedule (default: daily at 00:05)
  - Each affiliate gets an independent pass; one failure never stops the
    sweep, it is logged and retried on the next run
  - RunOnce is exposed for the admin recheck endpoint and tests

SEE ALSO:
  - handlers.go: Recheck endpoint (manual trigger of the same pass)
  - engine/reconcile.go: The evaluation pass itself
*/
package api

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/achievement-engine/engine"
)

// Sweep periodically re-runs the evaluation pass for every affiliate.
type Sweep struct {
	Handler  *Handler
	Schedule string
	Log      logrus.FieldLogger

	cron *cron.Cron
}

// NewSweep creates a sweep with the given cron schedule (minute
// granularity, e.g. "5 0 * * *" for daily at 00:05).
func NewSweep(h *Handler, schedule string, log logrus.FieldLogger) *Sweep {
	return &Sweep{Handler: h, Schedule: schedule, Log: log}
}

// Start registers the sweep and begins the cron scheduler.
func (s *Sweep) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.Schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.Log.WithField("schedule", s.Schedule).Info("re-evaluation sweep started")
	return nil
}

// Stop stops the cron scheduler and waits for a running sweep to finish.
func (s *Sweep) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.Log.Info("re-evaluation sweep stopped")
	}
}

// RunOnce sweeps every affiliate immediately.
func (s *Sweep) RunOnce(ctx context.Context) {
	affiliates, err := s.Handler.Store.ListAffiliates(ctx)
	if err != nil {
		s.Log.WithError(err).Error("sweep: listing affiliates failed")
		return
	}

	today := engine.Today()
	changed := 0
	for _, a := range affiliates {
		delta, err := s.Handler.Engine.Recheck(ctx, engine.AffiliateID(a.ID), today)
		if err != nil {
			s.Log.WithField("affiliate", a.ID).WithError(err).Error("sweep: recheck failed")
			continue
		}
		if !delta.Empty() {
			changed++
		}
	}
	s.Log.WithFields(logrus.Fields{"affiliates": len(affiliates), "changed": changed}).Info("sweep completed")
}
