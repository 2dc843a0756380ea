// internal/services/product_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront-backend/internal/cache"
	"github.com/urbanthreads/storefront-backend/internal/events"
	"github.com/urbanthreads/storefront-backend/internal/models"
	"github.com/urbanthreads/storefront-backend/internal/utils"
)

type ProductService struct {
	db      *gorm.DB
	cache   *cache.RedisCache
	emitter *events.Emitter
}

func NewProductService(db *gorm.DB, c *cache.RedisCache, emitter *events.Emitter) *ProductService {
	return &ProductService{
		db:      db,
		cache:   c,
		emitter: emitter,
	}
}

type CreateProductRequest struct {
	Name        string                  `json:"name" validate:"required,min=2,max=100"`
	Description string                  `json:"description" validate:"max=5000"`
	Price       float64                 `json:"price" validate:"required,gt=0"`
	Images      []string                `json:"images" validate:"max=10,dive,url"`
	Category    string                  `json:"category" validate:"required,max=100"`
	Slug        string                  `json:"slug" validate:"omitempty,slug"`
	Sizes       []string                `json:"sizes" validate:"max=20,dive,max=20"`
	Colors      []models.ProductColor   `json:"colors" validate:"max=20"`
	Stock       int                     `json:"stock" validate:"gte=0"`
	IsFeatured  bool                    `json:"is_featured"`
	Badge       string                  `json:"badge" validate:"max=30"`
}

type UpdateProductRequest struct {
	Name        *string                `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string                `json:"description" validate:"omitempty,max=5000"`
	Price       *float64               `json:"price" validate:"omitempty,gt=0"`
	Images      *[]string              `json:"images" validate:"omitempty,max=10,dive,url"`
	Category    *string                `json:"category" validate:"omitempty,max=100"`
	Sizes       *[]string              `json:"sizes" validate:"omitempty,max=20,dive,max=20"`
	Colors      *[]models.ProductColor `json:"colors" validate:"omitempty,max=20"`
	Stock       *int                   `json:"stock" validate:"omitempty,gte=0"`
	IsFeatured  *bool                  `json:"is_featured"`
	Badge       *string                `json:"badge" validate:"omitempty,max=30"`
}

type ProductFilters struct {
	Category string
	Featured *bool
}

func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(req.Name)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("product with slug '%s' already exists", slug)
	}

	sizes := models.StringList(req.Sizes)
	if len(sizes) == 0 {
		sizes = models.DefaultSizes
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      models.StringList(req.Images),
		Category:    req.Category,
		Slug:        slug,
		Sizes:       sizes,
		Colors:      models.ProductColorList(req.Colors),
		Stock:       req.Stock,
		IsFeatured:  req.IsFeatured,
		Badge:       req.Badge,
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidateFeatured(ctx)

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"slug":       product.Slug,
	}).Info("Product created")

	s.emitter.EmitProductCreated(product)
	if product.Stock <= events.LowStockThreshold {
		s.emitter.EmitLowStock(product)
	}

	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	cacheKey := productCacheKey(productID.String())

	if s.cache != nil {
		var cached models.Product
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if err != cache.Nil {
			logrus.WithError(err).WithField("key", cacheKey).Warn("Product cache read failed")
		}
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, &product); err != nil {
			logrus.WithError(err).Warn("Failed to cache product")
		}
	}

	return &product, nil
}

func (s *ProductService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	cacheKey := productSlugCacheKey(slug)

	if s.cache != nil {
		var cached models.Product
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if err != cache.Nil {
			logrus.WithError(err).WithField("key", cacheKey).Warn("Product cache read failed")
		}
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "slug = ?", slug).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, &product); err != nil {
			logrus.WithError(err).Warn("Failed to cache product")
		}
	}

	return &product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, params utils.PaginationParams, filters ProductFilters) (*utils.PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Featured != nil {
		query = query.Where("is_featured = ?", *filters.Featured)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "name", "price", "stock"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	result := utils.CreatePaginationResult(products, total, params)
	return &result, nil
}

func (s *ProductService) GetFeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit < 1 || limit > 50 {
		limit = 8
	}

	cacheKey := featuredCacheKey(limit)
	if s.cache != nil {
		var cached []models.Product
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if err != cache.Nil {
			logrus.WithError(err).WithField("key", cacheKey).Warn("Product cache read failed")
		}
	}

	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("is_featured = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get featured products: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, products); err != nil {
			logrus.WithError(err).Warn("Failed to cache featured products")
		}
	}

	return products, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, productID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	oldSlug := product.Slug
	oldStock := product.Stock

	if req.Name != nil {
		product.Name = *req.Name
		newSlug := utils.Slugify(*req.Name)
		if newSlug != product.Slug {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.Product{}).
				Where("slug = ? AND id <> ?", newSlug, productID).
				Count(&count).Error; err != nil {
				return nil, fmt.Errorf("failed to check slug: %w", err)
			}
			if count > 0 {
				return nil, fmt.Errorf("product with slug '%s' already exists", newSlug)
			}
			product.Slug = newSlug
		}
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Images != nil {
		product.Images = models.StringList(*req.Images)
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Sizes != nil {
		product.Sizes = models.StringList(*req.Sizes)
	}
	if req.Colors != nil {
		product.Colors = models.ProductColorList(*req.Colors)
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.IsFeatured != nil {
		product.IsFeatured = *req.IsFeatured
	}
	if req.Badge != nil {
		product.Badge = *req.Badge
	}

	if err := s.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidateProduct(ctx, product.ID.String(), oldSlug, product.Slug)

	logrus.WithField("product_id", product.ID).Info("Product updated")

	s.emitter.EmitProductUpdated(&product)
	if req.Stock != nil && product.Stock != oldStock {
		s.emitter.EmitStockUpdated(product.ID.String(), product.Stock)
		if product.Stock <= events.LowStockThreshold {
			s.emitter.EmitLowStock(&product)
		}
	}

	return &product, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("product not found")
		}
		return fmt.Errorf("failed to get product: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&product).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.invalidateProduct(ctx, product.ID.String(), product.Slug, product.Slug)

	logrus.WithField("product_id", productID).Info("Product deleted")

	s.emitter.EmitProductDeleted(productID.String())

	return nil
}

func (s *ProductService) invalidateProduct(ctx context.Context, id, oldSlug, newSlug string) {
	if s.cache == nil {
		return
	}

	keys := []string{productCacheKey(id), productSlugCacheKey(oldSlug)}
	if newSlug != oldSlug {
		keys = append(keys, productSlugCacheKey(newSlug))
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to invalidate product cache")
		}
	}

	s.invalidateFeatured(ctx)
}

// invalidateFeatured drops every cached featured listing. The lists are
// keyed per limit, so a pattern delete covers them all.
func (s *ProductService) invalidateFeatured(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, featuredCachePattern); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate featured products cache")
	}
}

const featuredCachePattern = "products:featured:*"

func featuredCacheKey(limit int) string {
	return fmt.Sprintf("products:featured:%d", limit)
}

func productCacheKey(id string) string {
	return "product:" + id
}

func productSlugCacheKey(slug string) string {
	return "product:slug:" + slug
}
