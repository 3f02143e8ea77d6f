package sync

import (
	"context"
	"fmt"
	"log/slog"
)

// Reconciler idempotently projects a freshly computed ordered list onto the
// live records at (scope, field, 0..N-1) and garbage-collects everything
// outside that range. It is the heart of the sync algorithm: because the
// match key is the position and never the content, running the same
// projection twice leaves the store byte-identical, and a shrinking list
// deletes exactly the stale tail.
type Reconciler struct {
	store  ValueStore
	logger *slog.Logger
}

// NewReconciler creates a Reconciler writing through the given store.
func NewReconciler(store ValueStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{store: store, logger: logger}
}

// Reconcile applies the computed list to (scope, field) in two explicit
// passes: a write pass over positions 0..N-1, then a delete pass removing
// every live position outside that range. Positions whose value is not
// Present are skipped by the write pass but still counted by the delete
// pass, so the three parallel per-employment fields stay aligned.
//
// After a successful call the set of live positions for (scope, field) is
// exactly {0..N-1} minus the skipped positions, with no stale tail.
func (r *Reconciler) Reconcile(ctx context.Context, scope Scope, field string, values []Value) error {
	for i, v := range values {
		if !v.Present {
			continue
		}

		if err := r.store.Upsert(ctx, scope, field, i, v); err != nil {
			return fmt.Errorf("sync: upserting %s position %d in %s: %w", field, i, scope, err)
		}
	}

	if err := r.store.DeleteOutside(ctx, scope, field, len(values)); err != nil {
		return fmt.Errorf("sync: pruning %s beyond position %d in %s: %w", field, len(values)-1, scope, err)
	}

	r.logger.Debug("field reconciled",
		slog.String("scope", scope.String()),
		slog.String("field", field),
		slog.Int("positions", len(values)),
	)

	return nil
}
