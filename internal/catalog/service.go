package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
)

const productsCacheKey = "products"

// Service exposes catalog reads with a redis read-through cache. Prices are
// read at cart-mutation time only; carts snapshot them afterwards.
type Service interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	InvalidateCache(ctx context.Context) error
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     Repository
	Cache    Cache
	Logger   *logger.Logger
	CacheTTL time.Duration
	Now      func() time.Time
}

type service struct {
	repo     Repository
	cache    Cache
	logg     *logger.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

type cachedCatalog struct {
	CachedAt time.Time        `json:"cached_at"`
	Products []models.Product `json:"products"`
}

// NewService builds the catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.CacheTTL <= 0 {
		params.CacheTTL = 5 * time.Minute
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		cache:    params.Cache,
		logg:     params.Logger,
		cacheTTL: params.CacheTTL,
		now:      params.Now,
	}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	if products, ok := s.readCache(ctx); ok {
		return products, nil
	}

	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}

	s.writeCache(ctx, products)
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return product, nil
}

func (s *service) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, s.cache.CatalogKey(productsCacheKey))
}

// Cache failures never block a catalog read; the DB is the source of truth.
func (s *service) readCache(ctx context.Context) ([]models.Product, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.CatalogKey(productsCacheKey))
	if err != nil {
		return nil, false
	}
	var cached cachedCatalog
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		s.logg.Warn(ctx, "discarding malformed catalog cache entry")
		return nil, false
	}
	return cached.Products, true
}

func (s *service) writeCache(ctx context.Context, products []models.Product) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(cachedCatalog{CachedAt: s.now(), Products: products})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CatalogKey(productsCacheKey), string(payload), s.cacheTTL); err != nil {
		s.logg.Warn(ctx, "failed to cache catalog")
	}
}
