package jobs

import (
	"context"

	"aigyoo-backend/internal/logger"
)

// Reconciler repairs profile verification flags that drifted from the
// latest verification row.
type Reconciler interface {
	ReconcileProfiles(ctx context.Context) (int, error)
}

// ScheduleReconcile registers the periodic flag repair.
func ScheduleReconcile(s *Scheduler, cronExpr string, r Reconciler) error {
	return s.AddJob(ReconcileJob, cronExpr, func(ctx context.Context) error {
		n, err := r.ReconcileProfiles(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("profile verification flags repaired", "count", n)
		}
		return nil
	})
}
