package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/broadcast"
	"github.com/thomaggio/thomaggio-backend/internal/cart"
	"github.com/thomaggio/thomaggio-backend/internal/catalog"
	"github.com/thomaggio/thomaggio-backend/internal/promo"
	"github.com/thomaggio/thomaggio-backend/internal/users"
	"github.com/thomaggio/thomaggio-backend/pkg/codes"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/money"
	"github.com/thomaggio/thomaggio-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service assembles orders out of carts and drives their kitchen lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	Receipt(ctx context.Context, code string) (string, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	Search(ctx context.Context, filters SearchFilters, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo        Repository
	Users       users.Repository
	CartRepo    cart.Repository
	PromoRepo   promo.Repository
	Catalog     catalog.Service
	Tx          txRunner
	Broadcaster broadcast.Broadcaster
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        Repository
	users       users.Repository
	cartRepo    cart.Repository
	promoRepo   promo.Repository
	catalog     catalog.Service
	tx          txRunner
	broadcaster broadcast.Broadcaster
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.PromoRepo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Broadcaster == nil {
		params.Broadcaster = broadcast.Noop{}
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:        params.Repo,
		users:       params.Users,
		cartRepo:    params.CartRepo,
		promoRepo:   params.PromoRepo,
		catalog:     params.Catalog,
		tx:          params.Tx,
		broadcaster: params.Broadcaster,
		logg:        params.Logger,
		now:         params.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var created *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		userRepo := s.users.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)
		promoRepo := s.promoRepo.WithTx(tx)

		var (
			target *models.Cart
			lines  []models.CartItem
		)
		if input.CartCode != "" {
			loaded, err := cartRepo.FindByCode(ctx, input.CartCode)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
			}
			if loaded.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart already checked out or expired")
			}
			if !loaded.HasItems() {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart has no items")
			}
			target = loaded
			lines = loaded.Items
		} else {
			direct, err := s.buildDirectLines(ctx, input.Items)
			if err != nil {
				return err
			}
			lines = direct
		}

		customer, err := s.resolveCustomer(ctx, userRepo, input, now)
		if err != nil {
			return err
		}

		var addressID *uuid.UUID
		if input.DeliveryType.RequiresAddress() {
			address, err := s.resolveAddress(ctx, userRepo, customer.ID, *input.Address)
			if err != nil {
				return err
			}
			addressID = &address.ID
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			subtotal = subtotal.Add(line.LineSubtotal())
		}

		discount := decimal.Zero
		total := subtotal
		if target != nil && target.HasPromo() {
			quote, err := s.revalidatePromo(ctx, promoRepo, target, subtotal)
			if err != nil {
				return err
			}
			discount = quote.DiscountValue
			total = quote.Total
		}

		deliveryFee := decimal.Zero
		if input.DeliveryType.RequiresAddress() {
			if target != nil {
				deliveryFee = target.DeliveryFee
			}
			if input.DeliveryFee != nil {
				deliveryFee = *input.DeliveryFee
			}
		}
		payable := total.Add(deliveryFee)

		cashTender, cashChange, err := resolveCash(input, payable)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:                    uuid.New(),
			Code:                  codes.Generate(),
			UserID:                customer.ID,
			CustomerName:          customer.Name,
			CustomerPhone:         customer.Phone,
			AddressID:             addressID,
			Status:                enums.OrderStatusPending,
			PaymentStatus:         enums.PaymentStatusPending,
			DeliveryType:          input.DeliveryType,
			PaymentMethod:         input.PaymentMethod,
			Subtotal:              subtotal,
			DiscountValue:         discount,
			DeliveryFee:           deliveryFee,
			Total:                 payable,
			CashTender:            cashTender,
			CashChange:            cashChange,
			Notes:                 input.Notes,
			PrivacyPolicyAccepted: input.PrivacyPolicyAccepted,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if target != nil {
			order.CartID = &target.ID
			order.PromoCodeID = target.PromoCodeID
			order.PromoCode = target.PromoCode
		}
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}

		items := freezeItems(order.ID, lines)
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order items")
		}
		order.Items = items

		if target != nil {
			updates := map[string]any{
				"status":     enums.CartStatusCompleted,
				"updated_at": now,
			}
			if err := cartRepo.UpdateCart(ctx, target.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing cart")
			}
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderCode(ctx, created.Code)
	if err := s.broadcaster.NewOrder(ctx, broadcast.OrderEvent{
		OrderCode:     created.Code,
		CustomerName:  created.CustomerName,
		DeliveryType:  created.DeliveryType,
		PaymentMethod: created.PaymentMethod,
		Total:         created.Total,
		ItemCount:     len(created.Items),
		CreatedAt:     created.CreatedAt,
	}); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "new order broadcast failed")
	}

	s.logg.Info(ctx, "order created")
	return created, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code required")
	}
	order, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

// Receipt renders the order as a plain-text kitchen ticket.
func (s *service) Receipt(ctx context.Context, code string) (string, error) {
	order, err := s.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	return RenderReceipt(order), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return list, nil
}

func (s *service) Search(ctx context.Context, filters SearchFilters, params pagination.Params) (*OrderList, error) {
	filters.Name = strings.TrimSpace(filters.Name)
	filters.Phone = strings.TrimSpace(filters.Phone)
	if filters.Name == "" && filters.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name or phone required")
	}
	list, err := s.repo.Search(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "searching orders")
	}
	return list, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	now := s.now().UTC()
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}
		if order.Status == status {
			updated = order
			return nil
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer change status")
		}

		updates := map[string]any{"status": status, "updated_at": now}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		order.Status = status
		order.UpdatedAt = now
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderCode(ctx, updated.Code)
	if err := s.broadcaster.OrderStatus(ctx, broadcast.OrderStatusEvent{
		OrderCode:  updated.Code,
		Status:     updated.Status,
		OccurredAt: now,
	}); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order status broadcast failed")
	}

	s.logg.Info(ctx, "order status updated")
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting order")
		}
		return nil
	})
}

func (s *service) resolveCustomer(ctx context.Context, repo users.Repository, input CreateInput, now time.Time) (*models.User, error) {
	name := strings.TrimSpace(input.CustomerName)
	phone := strings.TrimSpace(input.CustomerPhone)

	customer, err := repo.FindByPhone(ctx, phone)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
		}
		customer, err = repo.Create(ctx, &models.User{
			ID:        uuid.New(),
			Name:      name,
			Phone:     phone,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating customer")
		}
		return customer, nil
	}

	if customer.Name != name {
		if err := repo.UpdateName(ctx, customer.ID, name, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "renaming customer")
		}
		customer.Name = name
	}
	return customer, nil
}

func (s *service) resolveAddress(ctx context.Context, repo users.Repository, userID uuid.UUID, input AddressInput) (*models.Address, error) {
	candidate := models.Address{
		ID:           uuid.New(),
		UserID:       userID,
		Street:       strings.TrimSpace(input.Street),
		Number:       strings.TrimSpace(input.Number),
		Neighborhood: strings.TrimSpace(input.Neighborhood),
		City:         strings.TrimSpace(input.City),
		Complement:   input.Complement,
		Reference:    input.Reference,
	}

	existing, err := repo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading addresses")
	}
	for i := range existing {
		if existing[i].Matches(candidate) {
			return &existing[i], nil
		}
	}

	created, err := repo.CreateAddress(ctx, &candidate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating address")
	}
	return created, nil
}

// revalidatePromo re-checks the snapshotted code against the live promo row,
// so a code deactivated between apply and checkout never reaches an order.
func (s *service) revalidatePromo(ctx context.Context, repo promo.Repository, target *models.Cart, subtotal decimal.Decimal) (*money.Quote, error) {
	promoModel, err := repo.FindByCode(ctx, *target.PromoCode)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodePolicy, "promo code no longer available")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading promo code")
	}
	if !promoModel.Active || !promoModel.WithinWindow(s.now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodePolicy, "promo code no longer valid")
	}
	if subtotal.LessThan(promoModel.MinOrderValue) {
		return nil, pkgerrors.New(pkgerrors.CodePolicy, "cart subtotal below promo minimum").
			WithDetails(map[string]any{"min_order_value": promoModel.MinOrderValue.StringFixed(2)})
	}
	quote := money.ComputeOnSubtotal(subtotal, promoModel.DiscountPercentage)
	return &quote, nil
}

func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.CustomerName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if strings.TrimSpace(input.CustomerPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
	}
	if strings.TrimSpace(input.CartCode) == "" && len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart code or items required")
	}
	if input.DeliveryFee != nil && input.DeliveryFee.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery fee cannot be negative")
	}
	if !input.DeliveryType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.DeliveryType.RequiresAddress() && input.Address == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if !input.PrivacyPolicyAccepted {
		return pkgerrors.New(pkgerrors.CodeValidation, "privacy policy acceptance required")
	}
	return nil
}

func resolveCash(input CreateInput, payable decimal.Decimal) (*decimal.Decimal, *decimal.Decimal, error) {
	if input.PaymentMethod != enums.PaymentMethodCash || input.CashTender == nil {
		return nil, nil, nil
	}
	tender := *input.CashTender
	if tender.LessThan(payable) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cash tender below order total").
			WithDetails(map[string]any{"total": payable.StringFixed(2)})
	}
	change := tender.Sub(payable)
	return &tender, &change, nil
}

// buildDirectLines resolves request items against the catalog, reusing the
// cart line builder so direct orders get the same validation and server-side
// pricing as cart checkouts.
func (s *service) buildDirectLines(ctx context.Context, items []ItemInput) ([]models.CartItem, error) {
	lines := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		line, err := cart.BuildLine(product, cart.AddItemInput{
			ProductID:   item.ProductID,
			Size:        item.Size,
			Quantity:    item.Quantity,
			Flavors:     item.Flavors,
			Options:     item.Options,
			Observation: item.Observation,
		})
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, nil
}

func freezeItems(orderID uuid.UUID, lines []models.CartItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Size:        line.Size,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Flavors:     line.Flavors,
			Options:     line.Options,
			Observation: line.Observation,
			LineTotal:   line.LineSubtotal(),
		})
	}
	return items
}
