package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/payments"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/metrics"
)

// PaymentExpiryJobParams configure the stale-charge sweep.
type PaymentExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Payments  payments.Repository
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// NewPaymentExpiryJob builds the job that cancels pending charges past their
// deadline. The webhook deliberately leaves these alone; this job owns them.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &paymentExpiryJob{
		logg:     params.Logger,
		db:       params.DB,
		payments: params.Payments,
		metrics:  params.Metrics,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type paymentExpiryJob struct {
	logg     *logger.Logger
	db       txRunner
	payments payments.Repository
	metrics  *metrics.CronJobMetrics
	batch    int
	now      func() time.Time
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	expired, err := j.payments.FindExpiredPending(ctx, now, j.batch)
	if err != nil {
		return fmt.Errorf("find expired payments: %w", err)
	}

	var errs error
	swept := 0
	for _, candidate := range expired {
		if err := j.cancelOne(ctx, candidate.TransactionCode, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payment %s: %w", candidate.TransactionCode, err))
			continue
		}
		swept++
	}
	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), swept)
	}
	j.logg.Info(j.logg.WithField(ctx, "swept", swept), "payment expiry sweep done")
	return errs
}

func (j *paymentExpiryJob) cancelOne(ctx context.Context, transactionCode string, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.payments.WithTx(tx)
		target, err := repo.FindByTransactionCode(ctx, transactionCode)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if target.Status != enums.PaymentStatusPending || !target.Expired(now) {
			return nil
		}
		return repo.UpdatePayment(ctx, target.ID, map[string]any{
			"status":         enums.PaymentStatusCanceled,
			"qr_code":        nil,
			"qr_code_base64": nil,
			"ticket_url":     nil,
			"updated_at":     now,
		})
	})
}
