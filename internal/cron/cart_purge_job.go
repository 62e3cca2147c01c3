package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/cart"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/metrics"
)

const defaultCartPurgeAfter = 30 * 24 * time.Hour

// CartPurgeJobParams configure the hard-delete sweep for long-expired carts.
type CartPurgeJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Carts      cart.Repository
	Metrics    *metrics.CronJobMetrics
	PurgeAfter time.Duration
	BatchSize  int
}

// NewCartPurgeJob builds the job that drops expired carts and their items.
func NewCartPurgeJob(params CartPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	purgeAfter := params.PurgeAfter
	if purgeAfter <= 0 {
		purgeAfter = defaultCartPurgeAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &cartPurgeJob{
		logg:       params.Logger,
		db:         params.DB,
		carts:      params.Carts,
		metrics:    params.Metrics,
		purgeAfter: purgeAfter,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type cartPurgeJob struct {
	logg       *logger.Logger
	db         txRunner
	carts      cart.Repository
	metrics    *metrics.CronJobMetrics
	purgeAfter time.Duration
	batch      int
	now        func() time.Time
}

func (j *cartPurgeJob) Name() string { return "cart-purge" }

func (j *cartPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.purgeAfter)

	stale, err := j.carts.FindStale(ctx, []enums.CartStatus{enums.CartStatusExpired}, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("find purgeable carts: %w", err)
	}

	var errs error
	swept := 0
	for _, candidate := range stale {
		if err := j.purgeOne(ctx, candidate.ID, cutoff); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", candidate.Code, err))
			continue
		}
		swept++
	}
	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), swept)
	}
	j.logg.Info(j.logg.WithField(ctx, "swept", swept), "cart purge sweep done")
	return errs
}

func (j *cartPurgeJob) purgeOne(ctx context.Context, cartID uuid.UUID, cutoff time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.carts.WithTx(tx)
		target, err := repo.FindByID(ctx, cartID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if target.Status != enums.CartStatusExpired || !target.UpdatedAt.Before(cutoff) {
			return nil
		}
		return repo.HardDelete(ctx, target.ID)
	})
}
