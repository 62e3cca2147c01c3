package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
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
	require.NoError(t, db.Exec(products).Error)
	return db
}

func newProduct(t *testing.T, db *gorm.DB, name, category string, active bool) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		Name:     name,
		Category: category,
		PricesBySize: map[string]decimal.Decimal{
			"media":  decimal.RequireFromString("35.00"),
			"grande": decimal.RequireFromString("45.00"),
		},
		MaxFlavors: map[string]int{"grande": 2},
		Flavors:    []string{"calabresa", "mussarela"},
		Active:     active,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

type fakeCache struct {
	data map[string]string
	sets int
	gets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.gets++
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", assert.AnError
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.sets++
	f.data[key] = value.(string)
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCache) CatalogKey(parts ...string) string {
	key := "tmg:catalog"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.ErrorLevel})
}

func newTestService(t *testing.T, db *gorm.DB, cache Cache) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Cache:    cache,
		Logger:   testLogger(),
		CacheTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestListProductsSkipsInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	newProduct(t, db, "Pizza Calabresa", "pizza", true)
	newProduct(t, db, "Pizza Antiga", "pizza", false)

	svc := newTestService(t, db, nil)
	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Pizza Calabresa", products[0].Name)
}

func TestListProductsUsesCacheOnSecondRead(t *testing.T) {
	db := setupCatalogTestDB(t)
	newProduct(t, db, "Pizza Calabresa", "pizza", true)

	cache := newFakeCache()
	svc := newTestService(t, db, cache)

	first, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	// Drop the table; a cache hit must not touch the DB.
	require.NoError(t, db.Exec("DROP TABLE products").Error)

	second, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestInvalidateCacheForcesReload(t *testing.T) {
	db := setupCatalogTestDB(t)
	newProduct(t, db, "Pizza Calabresa", "pizza", true)

	cache := newFakeCache()
	svc := newTestService(t, db, cache)

	_, err := svc.ListProducts(context.Background())
	require.NoError(t, err)

	newProduct(t, db, "Pizza Mussarela", "pizza", true)
	require.NoError(t, svc.InvalidateCache(context.Background()))

	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestGetProductNotFound(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newTestService(t, db, nil)

	_, err := svc.GetProduct(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestGetProductRequiresID(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newTestService(t, db, nil)

	_, err := svc.GetProduct(context.Background(), uuid.Nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
