package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/catalog"
	"github.com/thomaggio/thomaggio-backend/pkg/codes"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the cart state machine.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Cart, error)
	GetByCode(ctx context.Context, code string) (*models.Cart, error)
	Update(ctx context.Context, code string, input UpdateInput) (*models.Cart, error)
	Delete(ctx context.Context, code string) error
	AddItem(ctx context.Context, code string, input AddItemInput) (*models.Cart, error)
	UpdateItem(ctx context.Context, code string, itemID uuid.UUID, input UpdateItemInput) (*models.Cart, error)
	RemoveItem(ctx context.Context, code string, itemID uuid.UUID, size string) (*models.Cart, error)
	ClearItems(ctx context.Context, code string) (*models.Cart, error)
}

// CreateInput seeds a new cart.
type CreateInput struct {
	WhatsappID *string
}

// UpdateInput mutates cart-level delivery data.
type UpdateInput struct {
	WhatsappID   *string
	Neighborhood *string
	DeliveryFee  *decimal.Decimal
}

// AddItemInput describes a line to add. Option names are resolved against the
// product's option price list.
type AddItemInput struct {
	ProductID   uuid.UUID
	Size        string
	Quantity    int
	Flavors     types.FlavorSelections
	Options     []string
	Observation *string
}

// UpdateItemInput mutates an existing line. Quantity is always applied; the
// other fields replace the current value only when set. Changing the size,
// flavors or options re-validates the selection against the product and
// re-snapshots the unit price.
type UpdateItemInput struct {
	Quantity    int
	Size        *string
	Flavors     *types.FlavorSelections
	Options     *[]string
	Observation *string
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo    Repository
	Catalog catalog.Service
	Tx      txRunner
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	catalog catalog.Service
	tx      txRunner
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
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
		repo:    params.Repo,
		catalog: params.Catalog,
		tx:      params.Tx,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Cart, error) {
	cart := &models.Cart{
		ID:         uuid.New(),
		Code:       codes.Generate(),
		Status:     enums.CartStatusActive,
		WhatsappID: input.WhatsappID,
	}
	created, err := s.repo.Create(ctx, cart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating cart")
	}
	s.logg.Info(s.logg.WithCartCode(ctx, created.Code), "cart created")
	return created, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Cart, error) {
	return s.loadCart(ctx, s.repo, code)
}

func (s *service) Update(ctx context.Context, code string, input UpdateInput) (*models.Cart, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, code)
		if err != nil {
			return err
		}
		if err := s.ensureMutable(cart); err != nil {
			return err
		}

		updates := map[string]any{"updated_at": s.now()}
		if input.WhatsappID != nil {
			updates["whatsapp_id"] = *input.WhatsappID
		}
		if input.Neighborhood != nil {
			updates["neighborhood"] = *input.Neighborhood
		}
		if input.DeliveryFee != nil {
			if input.DeliveryFee.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "delivery fee cannot be negative")
			}
			updates["delivery_fee"] = *input.DeliveryFee
		}
		if err := repo.UpdateCart(ctx, cart.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart")
		}

		result, err = s.loadCart(ctx, repo, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, code string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, code)
		if err != nil {
			return err
		}
		if cart.Status == enums.CartStatusExpired {
			return nil
		}
		now := s.now()
		updates := map[string]any{
			"status":     enums.CartStatusExpired,
			"deleted_at": now,
			"updated_at": now,
		}
		if err := repo.UpdateCart(ctx, cart.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expiring cart")
		}
		s.logg.Info(s.logg.WithCartCode(ctx, code), "cart expired by request")
		return nil
	})
}

func (s *service) AddItem(ctx context.Context, code string, input AddItemInput) (*models.Cart, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	line, err := BuildLine(product, input)
	if err != nil {
		return nil, err
	}

	var result *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, code)
		if err != nil {
			return err
		}
		if err := s.ensureMutable(cart); err != nil {
			return err
		}

		now := s.now()
		if existing := findMergeTarget(cart.Items, *line); existing != nil {
			updates := map[string]any{
				"quantity":   existing.Quantity + input.Quantity,
				"updated_at": now,
			}
			if err := repo.UpdateItem(ctx, existing.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merging cart item")
			}
		} else {
			line.ID = uuid.New()
			line.CartID = cart.ID
			if _, err := repo.CreateItem(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding cart item")
			}
		}

		cartUpdates := map[string]any{"updated_at": now}
		if cart.Status == enums.CartStatusActive || cart.Status == enums.CartStatusCleared {
			cartUpdates["status"] = enums.CartStatusProcessing
		}
		if err := repo.UpdateCart(ctx, cart.ID, cartUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart")
		}

		result, err = s.loadCart(ctx, repo, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UpdateItem(ctx context.Context, code string, itemID uuid.UUID, input UpdateItemInput) (*models.Cart, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, code)
		if err != nil {
			return err
		}
		if err := s.ensureMutable(cart); err != nil {
			return err
		}

		item, err := s.loadItem(ctx, repo, cart, itemID)
		if err != nil {
			return err
		}

		updates, err := s.buildItemUpdates(ctx, item, input)
		if err != nil {
			return err
		}

		now := s.now()
		updates["updated_at"] = now
		if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart item")
		}
		if err := repo.UpdateCart(ctx, cart.ID, map[string]any{"updated_at": now}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart")
		}

		result, err = s.loadCart(ctx, repo, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RemoveItem(ctx context.Context, code string, itemID uuid.UUID, size string) (*models.Cart, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, code)
		if err != nil {
			return err
		}
		if err := s.ensureMutable(cart); err != nil {
			return err
		}

		item, err := s.loadItem(ctx, repo, cart, itemID)
		if err != nil {
			return err
		}
		if item.Size != size {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found for size")
		}

		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart item")
		}
		if err := repo.UpdateCart(ctx, cart.ID, map[string]any{"updated_at": s.now()}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart")
		}

		result, err = s.loadCart(ctx, repo, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ClearItems(ctx context.Context, code string) (*models.Cart, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, code)
		if err != nil {
			return err
		}
		if err := s.ensureMutable(cart); err != nil {
			return err
		}

		hadItems := cart.HasItems()
		if hadItems {
			if err := repo.DeleteItemsByCart(ctx, cart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart items")
			}
		}

		updates := map[string]any{"updated_at": s.now()}
		// An empty cart stays in its current status; clearing is only a
		// transition when something was actually removed.
		if hadItems {
			updates["status"] = enums.CartStatusCleared
		}
		if err := repo.UpdateCart(ctx, cart.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart")
		}

		result, err = s.loadCart(ctx, repo, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) loadCart(ctx context.Context, repo Repository, code string) (*models.Cart, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart code required")
	}
	cart, err := repo.FindByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return cart, nil
}

func (s *service) loadItem(ctx context.Context, repo Repository, cart *models.Cart, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart item")
	}
	if item.CartID != cart.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return item, nil
}

func (s *service) ensureMutable(cart *models.Cart) error {
	if cart.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart can no longer be modified")
	}
	return nil
}

// BuildLine validates the selection against the product and snapshots the
// current prices onto a new cart line. Order creation from request lines
// reuses it so direct items go through the same validation and pricing.
func BuildLine(product *models.Product, input AddItemInput) (*models.CartItem, error) {
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodePolicy, "product is not available")
	}

	unitPrice, ok := product.PriceFor(input.Size)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size not offered for product").
			WithDetails(map[string]any{"size": input.Size})
	}

	minFlavors, maxFlavors := product.FlavorBoundsFor(input.Size)
	flavorCount := input.Flavors.TotalQuantity()
	if maxFlavors == 0 && flavorCount > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not take flavors")
	}
	if flavorCount < minFlavors || (maxFlavors > 0 && flavorCount > maxFlavors) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "flavor count out of range").
			WithDetails(map[string]any{"min": minFlavors, "max": maxFlavors})
	}
	for _, flavor := range input.Flavors {
		if flavor.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "flavor quantity must be positive")
		}
		if !product.HasFlavor(flavor.Name) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "flavor not offered for product").
				WithDetails(map[string]any{"flavor": flavor.Name})
		}
	}

	options := types.OptionPrices{}
	for _, name := range input.Options {
		price, ok := product.Options[name]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "option not offered for product").
				WithDetails(map[string]any{"option": name})
		}
		options[name] = price
	}

	return &models.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Size:        input.Size,
		Quantity:    input.Quantity,
		UnitPrice:   unitPrice,
		Flavors:     input.Flavors,
		Options:     options,
		Observation: input.Observation,
	}, nil
}

// buildItemUpdates turns an UpdateItemInput into a column update map. When the
// size, flavors or options change, the effective selection is re-validated
// against the product and the unit price re-snapshotted.
func (s *service) buildItemUpdates(ctx context.Context, item *models.CartItem, input UpdateItemInput) (map[string]any, error) {
	updates := map[string]any{"quantity": input.Quantity}

	if input.Size != nil || input.Flavors != nil || input.Options != nil {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		effective := AddItemInput{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  input.Quantity,
			Flavors:   item.Flavors,
		}
		for name := range item.Options {
			effective.Options = append(effective.Options, name)
		}
		if input.Size != nil {
			effective.Size = *input.Size
		}
		if input.Flavors != nil {
			effective.Flavors = *input.Flavors
		}
		if input.Options != nil {
			effective.Options = *input.Options
		}

		line, err := BuildLine(product, effective)
		if err != nil {
			return nil, err
		}
		updates["size"] = line.Size
		updates["unit_price"] = line.UnitPrice
		updates["flavors"] = line.Flavors
		updates["options"] = line.Options
	}

	if input.Observation != nil {
		if *input.Observation == "" {
			updates["observation"] = nil
		} else {
			updates["observation"] = *input.Observation
		}
	}
	return updates, nil
}

func findMergeTarget(items []models.CartItem, line models.CartItem) *models.CartItem {
	for i := range items {
		if items[i].SameSelection(line) {
			return &items[i]
		}
	}
	return nil
}
