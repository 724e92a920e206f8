package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/repository/cache"
)

// Cache is the read-through cache in front of the product repository
type Cache interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	GetProductList(ctx context.Context, limit, offset int) (*cache.ProductPage, error)
	SetProductList(ctx context.Context, limit, offset int, page *cache.ProductPage) error
}

// Service handles read access to the product catalog
type Service struct {
	repo   domain.ProductRepository
	cache  Cache
	logger *logger.Logger
}

// NewService creates a new catalog service
func NewService(repo domain.ProductRepository, cache Cache, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

// GetByID retrieves a product by ID, serving from cache when possible
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.cache.GetProduct(ctx, id)
	if err == nil {
		s.logger.Debugf("Cache hit for product %s", id)
		return product, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warnf("Failed to read product %s from cache: %v", id, err)
	}

	product, err = s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warnf("Failed to cache product %s: %v", id, err)
	}

	return product, nil
}

// List retrieves a paginated list of products
func (s *Service) List(ctx context.Context, limit, offset int) ([]*domain.Product, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	page, err := s.cache.GetProductList(ctx, limit, offset)
	if err == nil {
		s.logger.Debugf("Cache hit for product list (limit=%d, offset=%d)", limit, offset)
		return page.Products, page.Total, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warnf("Failed to read product list from cache: %v", err)
	}

	products, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	if err := s.cache.SetProductList(ctx, limit, offset, &cache.ProductPage{Products: products, Total: total}); err != nil {
		s.logger.Warnf("Failed to cache product list: %v", err)
	}

	return products, total, nil
}
