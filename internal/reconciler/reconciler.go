// Package reconciler periodically reverts orders whose payment never
// settled, returning their reserved stock to inventory.
package reconciler

import (
	"context"
	"time"

	"arasta-be/internal/logger"
	"arasta-be/internal/metrics"
	"arasta-be/internal/order"

	"go.uber.org/zap"
)

type Reconciler struct {
	orders   order.Service
	interval time.Duration
}

func New(orders order.Service, interval time.Duration) *Reconciler {
	return &Reconciler{orders: orders, interval: interval}
}

// Run sweeps on a fixed ticker until ctx is cancelled. The first sweep
// happens one interval after startup, not immediately, so a restart loop
// does not hammer the orders table.
func (r *Reconciler) Run(ctx context.Context) {
	log := logger.L().With(zap.String("component", "reconciler"))
	log.Info("reconciler started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep reverts every unsettled order it can. Failures are isolated per
// order: one broken row never blocks the rest of the batch.
func (r *Reconciler) Sweep(ctx context.Context) {
	log := logger.L().With(zap.String("component", "reconciler"))
	metrics.ReconcilerSweeps.Inc()

	orders, err := r.orders.ListUnsettled(ctx)
	if err != nil {
		log.Error("failed to list unsettled orders", zap.Error(err))
		metrics.ReconcilerErrors.Inc()
		return
	}
	if len(orders) == 0 {
		return
	}

	log.Info("sweeping unsettled orders", zap.Int("count", len(orders)))

	reaped := 0
	for _, o := range orders {
		released, err := r.orders.ReapOrder(ctx, o)
		if err != nil {
			log.Error("failed to reap order",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
			metrics.ReconcilerErrors.Inc()
			continue
		}

		reaped++
		metrics.ReconcilerOrdersReaped.Inc()
		metrics.ReconcilerQuantitiesReleased.Add(float64(released))

		log.Info("order reaped",
			zap.String("order_id", o.ID.String()),
			zap.String("payment_status", string(o.PaymentStatus)),
			zap.Int("quantity_released", released),
		)
	}

	log.Info("sweep finished",
		zap.Int("reaped", reaped),
		zap.Int("failed", len(orders)-reaped),
	)
}
