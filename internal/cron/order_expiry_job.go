package cron

import (
	"context"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultPendingTTL  = 72 * time.Hour
	defaultExpiryBatch = 200
)

type staleOrderExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type OrderExpiryJobParams struct {
	Logger     *logger.Logger
	Orders     staleOrderExpirer
	PendingTTL time.Duration
	BatchSize  int
	Now        func() time.Time
}

// OrderExpiryJob cancels PENDING orders that never got paid within PendingTTL,
// returning their reserved stock.
type OrderExpiryJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func NewOrderExpiryJob(params OrderExpiryJobParams) (*OrderExpiryJob, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &OrderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    now,
	}, nil
}

func (j *OrderExpiryJob) Name() string { return "order-expiry" }

// Run works through one batch. Per-order failures come back combined; the
// orders that did expire stay expired.
func (j *OrderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	expired, err := j.orders.ExpireStale(ctx, cutoff, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": expired,
	})
	if err != nil {
		j.logg.Warn(logCtx, "order expiry finished with failures")
		return err
	}
	j.logg.Info(logCtx, "order expiry complete")
	return nil
}
