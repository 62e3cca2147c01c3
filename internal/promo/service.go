package promo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/cart"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Summary is the discount breakdown returned after applying a code.
type Summary struct {
	Code               string          `json:"code"`
	Description        *string         `json:"description,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountValue      decimal.Decimal `json:"discount_value"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Total              decimal.Decimal `json:"total"`
}

// Service applies and removes promo codes on carts.
type Service interface {
	Apply(ctx context.Context, code, cartCode string) (*Summary, error)
	Remove(ctx context.Context, cartCode string) error
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     Repository
	CartRepo cart.Repository
	Tx       txRunner
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	cartRepo cart.Repository
	tx       txRunner
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the promo service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		cartRepo: params.CartRepo,
		tx:       params.Tx,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

func (s *service) Apply(ctx context.Context, code, cartCode string) (*Summary, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}

	var summary *Summary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		target, err := s.loadCart(ctx, cartRepo, cartCode)
		if err != nil {
			return err
		}
		if target.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart can no longer be modified")
		}

		promo, err := repo.FindByCode(ctx, normalized)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown promo code")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading promo code")
		}

		now := s.now().UTC()
		if err := validatePromo(promo, target, now); err != nil {
			return err
		}

		ok, err := repo.IncrementUses(ctx, promo.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "incrementing promo uses")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodePolicy, "promo code usage limit reached")
		}

		quote := money.ComputeOnSubtotal(target.Total(), promo.DiscountPercentage)
		updates := map[string]any{
			"promo_code_id":       promo.ID,
			"promo_code":          promo.Code,
			"discount_percentage": promo.DiscountPercentage,
			"discount_value":      quote.DiscountValue,
			"promo_applied_at":    now,
			"updated_at":          now,
		}
		if err := cartRepo.UpdateCart(ctx, target.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "applying promo to cart")
		}

		summary = &Summary{
			Code:               promo.Code,
			Description:        promo.Description,
			DiscountPercentage: promo.DiscountPercentage,
			DiscountValue:      quote.DiscountValue,
			Subtotal:           quote.Subtotal,
			Total:              quote.Total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithCartCode(ctx, cartCode), "promo code applied")
	return summary, nil
}

// Remove clears the promo snapshot. current_uses stays as-is: a use counts
// the redeemed intent, not the final checkout.
func (s *service) Remove(ctx context.Context, cartCode string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		target, err := s.loadCart(ctx, cartRepo, cartCode)
		if err != nil {
			return err
		}
		if !target.HasPromo() {
			return nil
		}

		updates := map[string]any{
			"promo_code_id":       nil,
			"promo_code":          nil,
			"discount_percentage": nil,
			"discount_value":      nil,
			"promo_applied_at":    nil,
			"updated_at":          s.now(),
		}
		if err := cartRepo.UpdateCart(ctx, target.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing promo from cart")
		}
		return nil
	})
}

func (s *service) loadCart(ctx context.Context, repo cart.Repository, cartCode string) (*models.Cart, error) {
	if cartCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart code required")
	}
	target, err := repo.FindByCode(ctx, cartCode)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return target, nil
}

func validatePromo(promo *models.PromoCode, target *models.Cart, now time.Time) error {
	if !promo.Active {
		return pkgerrors.New(pkgerrors.CodePolicy, "promo code is inactive")
	}
	if !promo.WithinWindow(now) {
		return pkgerrors.New(pkgerrors.CodePolicy, "promo code is outside its validity window")
	}
	if promo.Exhausted() {
		return pkgerrors.New(pkgerrors.CodePolicy, "promo code usage limit reached")
	}
	if target.Total().LessThan(promo.MinOrderValue) {
		return pkgerrors.New(pkgerrors.CodePolicy, "cart subtotal below promo minimum").
			WithDetails(map[string]any{"min_order_value": promo.MinOrderValue.StringFixed(2)})
	}
	return nil
}
