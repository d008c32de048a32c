package stats

import (
	"context"

	"engage_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const reconcileParallelism = 4

// Reconciler runs the periodic exact recompute across all tenants.
type Reconciler struct {
	repo *Repository
	log  *logger.Logger
}

func NewReconciler(repo *Repository, log *logger.Logger) *Reconciler {
	return &Reconciler{repo: repo, log: log}
}

// ReconcileAll recomputes the counter cache for every tenant. Individual
// tenant failures are logged and do not stop the sweep; the first error is
// still returned so the job retries.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	tenantIDs, err := r.repo.ListTenantIDs(ctx)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(reconcileParallelism)

	for _, tenantID := range tenantIDs {
		group.Go(func() error {
			if err := r.repo.Reconcile(ctx, tenantID); err != nil {
				r.log.Error("stats reconcile failed", "tenant_id", tenantID, "error", err)
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	r.log.Info("stats reconcile completed", "tenants", len(tenantIDs))
	return nil
}
