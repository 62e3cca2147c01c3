package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/catalog"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  prices_by_size TEXT NOT NULL,
  min_flavors TEXT,
  max_flavors TEXT,
  flavors TEXT,
  options TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'active',
  whatsapp_id TEXT,
  neighborhood TEXT,
  delivery_fee NUMERIC NOT NULL DEFAULT 0,
  promo_code_id TEXT,
  promo_code TEXT,
  discount_percentage NUMERIC,
  discount_value NUMERIC,
  promo_applied_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  size TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  flavors TEXT,
  options TEXT,
  observation TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(cartItems).Error)
	return db
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.ErrorLevel})
}

func seedPizza(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Pizza Calabresa",
		Category: "pizza",
		PricesBySize: map[string]decimal.Decimal{
			"media":  decimal.RequireFromString("35.00"),
			"grande": decimal.RequireFromString("45.00"),
		},
		MaxFlavors: map[string]int{"media": 2, "grande": 2},
		Flavors:    []string{"calabresa", "mussarela", "portuguesa"},
		Options: types.OptionPrices{
			"borda recheada": decimal.RequireFromString("3.00"),
		},
		Active: true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func newCartService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		Repo:   catalog.NewRepository(db),
		Logger: testLogger(),
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(db),
		Catalog: catalogSvc,
		Tx:      stubTxRunner{},
		Logger:  testLogger(),
	})
	require.NoError(t, err)
	return svc
}

func TestCreateCartGeneratesCode(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)
	assert.Len(t, cart.Code, 10)
	assert.Equal(t, enums.CartStatusActive, cart.Status)
	assert.Empty(t, cart.Items)
}

func TestAddItemSnapshotsPriceAndTransitionsStatus(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)

	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID,
		Size:      "grande",
		Quantity:  2,
		Flavors:   types.FlavorSelections{{Name: "calabresa", Quantity: 2}},
		Options:   []string{"borda recheada"},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.CartStatusProcessing, cart.Status)
	require.Len(t, cart.Items, 1)
	item := cart.Items[0]
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("45.00")))
	assert.True(t, item.LineSubtotal().Equal(decimal.RequireFromString("96.00")))
	assert.True(t, cart.Total().Equal(decimal.RequireFromString("96.00")))
}

func TestAddItemMergesSameSelection(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)

	input := AddItemInput{
		ProductID: product.ID,
		Size:      "media",
		Quantity:  1,
		Flavors:   types.FlavorSelections{{Name: "mussarela", Quantity: 1}},
	}
	cart, err = svc.AddItem(context.Background(), cart.Code, input)
	require.NoError(t, err)
	cart, err = svc.AddItem(context.Background(), cart.Code, input)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestAddItemDifferentSizeCreatesSeparateLine(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)

	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "mussarela", Quantity: 1}},
	})
	require.NoError(t, err)
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "grande", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "mussarela", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Len(t, cart.Items, 2)
}

func TestAddItemValidations(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)

	inactive := seedPizza(t, db)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", inactive.ID).Update("active", false).Error)

	svc := newCartService(t, db)
	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)

	cases := []struct {
		name  string
		input AddItemInput
		code  pkgerrors.Code
	}{
		{
			name:  "inactive product",
			input: AddItemInput{ProductID: inactive.ID, Size: "media", Quantity: 1},
			code:  pkgerrors.CodePolicy,
		},
		{
			name:  "unknown size",
			input: AddItemInput{ProductID: product.ID, Size: "gigante", Quantity: 1},
			code:  pkgerrors.CodeValidation,
		},
		{
			name: "flavor not offered",
			input: AddItemInput{
				ProductID: product.ID, Size: "media", Quantity: 1,
				Flavors: types.FlavorSelections{{Name: "chocolate", Quantity: 1}},
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "too many flavors",
			input: AddItemInput{
				ProductID: product.ID, Size: "media", Quantity: 1,
				Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 2}, {Name: "mussarela", Quantity: 1}},
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "unknown option",
			input: AddItemInput{
				ProductID: product.ID, Size: "media", Quantity: 1,
				Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
				Options: []string{"queijo extra"},
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name:  "zero quantity",
			input: AddItemInput{ProductID: product.ID, Size: "media", Quantity: 0},
			code:  pkgerrors.CodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(context.Background(), cart.Code, tc.input)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tc.code, typed.Code())
		})
	}
}

func TestAddItemObservationKeepsLinesSeparate(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)

	obs := "sem cebola"
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors:     types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
		Observation: &obs,
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.NotNil(t, cart.Items[0].Observation)
	assert.Equal(t, "sem cebola", *cart.Items[0].Observation)

	// Same product and size but no observation: a new line, not a merge.
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	// Identical observation merges.
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 2,
		Flavors:     types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
		Observation: &obs,
	})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestUpdateItemQuantity(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
	})
	require.NoError(t, err)

	cart, err = svc.UpdateItem(context.Background(), cart.Code, cart.Items[0].ID, UpdateItemInput{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, err = svc.UpdateItem(context.Background(), cart.Code, cart.Items[0].ID, UpdateItemInput{Quantity: 0})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateItemSelectionRepricesLine(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
	})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	size := "grande"
	flavors := types.FlavorSelections{{Name: "mussarela", Quantity: 2}}
	options := []string{"borda recheada"}
	obs := "bem assada"
	cart, err = svc.UpdateItem(context.Background(), cart.Code, itemID, UpdateItemInput{
		Quantity:    2,
		Size:        &size,
		Flavors:     &flavors,
		Options:     &options,
		Observation: &obs,
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	item := cart.Items[0]
	assert.Equal(t, "grande", item.Size)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("45.00")), "unit price must re-snapshot on size change")
	assert.Equal(t, flavors, item.Flavors)
	require.Contains(t, item.Options, "borda recheada")
	require.NotNil(t, item.Observation)
	assert.Equal(t, "bem assada", *item.Observation)
}

func TestUpdateItemSelectionRevalidates(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
	})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	badSize := "gigante"
	_, err = svc.UpdateItem(context.Background(), cart.Code, itemID, UpdateItemInput{Quantity: 1, Size: &badSize})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	badOptions := []string{"queijo extra"}
	_, err = svc.UpdateItem(context.Background(), cart.Code, itemID, UpdateItemInput{Quantity: 1, Options: &badOptions})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	badFlavors := types.FlavorSelections{{Name: "chocolate", Quantity: 1}}
	_, err = svc.UpdateItem(context.Background(), cart.Code, itemID, UpdateItemInput{Quantity: 1, Flavors: &badFlavors})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRemoveItemChecksSize(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
	})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = svc.RemoveItem(context.Background(), cart.Code, itemID, "grande")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	cart, err = svc.RemoveItem(context.Background(), cart.Code, itemID, "media")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestClearItemsOnlyTransitionsWhenItemsExisted(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)

	// Clearing an empty cart keeps the current status.
	cart, err = svc.ClearItems(context.Background(), cart.Code)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusActive, cart.Status)

	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
	})
	require.NoError(t, err)

	cart, err = svc.ClearItems(context.Background(), cart.Code)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusCleared, cart.Status)
	assert.Empty(t, cart.Items)

	// A cleared cart accepts items again and goes back to processing.
	cart, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusProcessing, cart.Status)
}

func TestDeleteCartIsSoftAndTerminal(t *testing.T) {
	db := setupCartTestDB(t)
	product := seedPizza(t, db)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), cart.Code))

	reloaded, err := svc.GetByCode(context.Background(), cart.Code)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusExpired, reloaded.Status)
	assert.NotNil(t, reloaded.DeletedAt)

	_, err = svc.AddItem(context.Background(), cart.Code, AddItemInput{
		ProductID: product.ID, Size: "media", Quantity: 1,
		Flavors: types.FlavorSelections{{Name: "calabresa", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	// Deleting again is a no-op.
	require.NoError(t, svc.Delete(context.Background(), cart.Code))
}

func TestUpdateCartDeliveryFee(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	cart, err := svc.Create(context.Background(), CreateInput{})
	require.NoError(t, err)

	fee := decimal.RequireFromString("8.00")
	hood := "Centro"
	cart, err = svc.Update(context.Background(), cart.Code, UpdateInput{
		DeliveryFee:  &fee,
		Neighborhood: &hood,
	})
	require.NoError(t, err)
	assert.True(t, cart.DeliveryFee.Equal(fee))
	require.NotNil(t, cart.Neighborhood)
	assert.Equal(t, "Centro", *cart.Neighborhood)

	negative := decimal.RequireFromString("-1.00")
	_, err = svc.Update(context.Background(), cart.Code, UpdateInput{DeliveryFee: &negative})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetByCodeNotFound(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	_, err := svc.GetByCode(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
