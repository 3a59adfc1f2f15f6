package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/metrics"
)

// Reconciler retries the deletion of auth principals left behind by failed
// sign-ups. A principal that no longer exists counts as resolved.
type Reconciler struct {
	orphans  db.OrphanRepository
	provider identity.Provider
	logger   *zap.Logger
	timeout  time.Duration
	cron     *cron.Cron
}

func NewReconciler(orphans db.OrphanRepository, provider identity.Provider, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		orphans:  orphans,
		provider: provider,
		logger:   logger,
		timeout:  time.Minute,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// RunOnce processes every recorded orphan and returns how many were resolved.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	orphans, err := r.orphans.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list orphaned principals: %w", err)
	}

	resolved := 0
	for _, o := range orphans {
		err := r.provider.DeleteUser(ctx, o.UID)
		if err != nil && !errors.Is(err, identity.ErrPrincipalNotFound) {
			metrics.RecordReconcile("retry")
			r.logger.Warn("Orphaned principal still not deleted",
				zap.String("uid", o.UID), zap.Int("attempts", o.Attempts+1), zap.Error(err))
			if incErr := r.orphans.IncrementAttempts(ctx, o.UID); incErr != nil {
				r.logger.Error("Failed to record reconcile attempt", zap.String("uid", o.UID), zap.Error(incErr))
			}
			continue
		}

		if err := r.orphans.Delete(ctx, o.UID); err != nil {
			r.logger.Error("Principal deleted but orphan record remains", zap.String("uid", o.UID), zap.Error(err))
			continue
		}
		metrics.RecordReconcile("resolved")
		r.logger.Info("Orphaned principal removed", zap.String("uid", o.UID), zap.String("email", o.Email))
		resolved++
	}
	return resolved, nil
}

// Start runs RunOnce on the given cron schedule until Stop is called.
func (r *Reconciler) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("Reconcile run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	r.cron.Start()
	r.logger.Info("Reconciler started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for a running pass, bounded by ctx.
func (r *Reconciler) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		r.logger.Warn("Reconciler did not stop in time")
	}
}
