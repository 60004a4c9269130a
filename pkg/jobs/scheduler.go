// Package jobs runs the scheduled maintenance work: expired invitation
// cleanup and audit trail retention.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskhive/taskhive/pkg/observability"
)

// InvitationCleaner removes invitations past their expiry
type InvitationCleaner interface {
	CleanupExpiredInvitations(ctx context.Context) (int64, error)
}

// AuditPruner deletes audit events older than a cutoff
type AuditPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler owns the cron runner for background maintenance
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
}

// NewScheduler creates a scheduler. Jobs are registered with the Add
// methods and run after Start.
func NewScheduler(logger *observability.Logger) *Scheduler {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddInvitationCleanup schedules expired-invitation cleanup. The
// schedule is a standard five-field cron expression.
func (s *Scheduler) AddInvitationCleanup(schedule string, cleaner InvitationCleaner) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runInvitationCleanup(context.Background(), cleaner)
	})
	return err
}

// AddAuditRetention schedules deletion of audit events older than the
// retention window.
func (s *Scheduler) AddAuditRetention(schedule string, pruner AuditPruner, retention time.Duration) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runAuditRetention(context.Background(), pruner, retention)
	})
	return err
}

// Start begins running scheduled jobs in their own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runInvitationCleanup(ctx context.Context, cleaner InvitationCleaner) {
	defer observability.RecoverPanic(s.logger, "invitation cleanup")

	removed, err := cleaner.CleanupExpiredInvitations(ctx)
	if err != nil {
		s.logger.WithError(err).Error("invitation cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("cleaned up expired invitations")
	}
}

func (s *Scheduler) runAuditRetention(ctx context.Context, pruner AuditPruner, retention time.Duration) {
	defer observability.RecoverPanic(s.logger, "audit retention")

	cutoff := time.Now().Add(-retention)
	deleted, err := pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("audit retention failed")
		return
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("pruned audit events")
	}
}
