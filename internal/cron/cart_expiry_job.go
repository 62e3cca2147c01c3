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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

const (
	defaultCartExpireAfter = 7 * 24 * time.Hour
	defaultSweepBatch      = 200
)

// CartExpiryJobParams configure the abandoned-cart sweep.
type CartExpiryJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Carts       cart.Repository
	Metrics     *metrics.CronJobMetrics
	ExpireAfter time.Duration
	BatchSize   int
}

// NewCartExpiryJob builds the job that expires carts abandoned mid-order.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	expireAfter := params.ExpireAfter
	if expireAfter <= 0 {
		expireAfter = defaultCartExpireAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &cartExpiryJob{
		logg:        params.Logger,
		db:          params.DB,
		carts:       params.Carts,
		metrics:     params.Metrics,
		expireAfter: expireAfter,
		batch:       batch,
		now:         time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg        *logger.Logger
	db          txRunner
	carts       cart.Repository
	metrics     *metrics.CronJobMetrics
	expireAfter time.Duration
	batch       int
	now         func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.expireAfter)
	sweepable := []enums.CartStatus{enums.CartStatusActive, enums.CartStatusProcessing}

	stale, err := j.carts.FindStale(ctx, sweepable, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("find stale carts: %w", err)
	}

	var errs error
	swept := 0
	for _, candidate := range stale {
		if err := j.expireOne(ctx, candidate.ID, cutoff, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", candidate.Code, err))
			continue
		}
		swept++
	}
	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), swept)
	}
	j.logg.Info(j.logg.WithField(ctx, "swept", swept), "cart expiry sweep done")
	return errs
}

// expireOne re-checks the cart inside the transaction; a customer touching
// the cart between the scan and the sweep keeps it alive.
func (j *cartExpiryJob) expireOne(ctx context.Context, cartID uuid.UUID, cutoff, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.carts.WithTx(tx)
		target, err := repo.FindByID(ctx, cartID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if target.Status != enums.CartStatusActive && target.Status != enums.CartStatusProcessing {
			return nil
		}
		if !target.UpdatedAt.Before(cutoff) {
			return nil
		}
		return repo.UpdateCart(ctx, target.ID, map[string]any{
			"status":     enums.CartStatusExpired,
			"updated_at": now,
		})
	})
}
