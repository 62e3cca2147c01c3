package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/promo"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/metrics"
)

// PromoCleanupJobParams configure the promo deactivation sweep.
type PromoCleanupJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Promos  promo.Repository
	Metrics *metrics.CronJobMetrics
}

// NewPromoCleanupJob builds the job that flips codes past their window to
// inactive, so the apply path stops matching them.
func NewPromoCleanupJob(params PromoCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Promos == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	return &promoCleanupJob{
		logg:    params.Logger,
		db:      params.DB,
		promos:  params.Promos,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type promoCleanupJob struct {
	logg    *logger.Logger
	db      txRunner
	promos  promo.Repository
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func (j *promoCleanupJob) Name() string { return "promo-cleanup" }

func (j *promoCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	var deactivated int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := j.promos.WithTx(tx).DeactivateExpired(ctx, now)
		if err != nil {
			return err
		}
		deactivated = count
		return nil
	})
	if err != nil {
		return fmt.Errorf("deactivate expired promos: %w", err)
	}

	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), int(deactivated))
	}
	j.logg.Info(j.logg.WithField(ctx, "swept", deactivated), "promo cleanup sweep done")
	return nil
}
