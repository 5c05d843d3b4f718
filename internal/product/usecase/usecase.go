package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/product"
	"github.com/mvega/pos-checkout-service/internal/product/dto"
	"github.com/mvega/pos-checkout-service/pkg/cache"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"github.com/mvega/pos-checkout-service/pkg/search"
	"go.uber.org/zap"
)

const productsIndex = "products"

type productUseCase struct {
	repo   product.Repository
	cache  *cache.RedisClient
	es     *search.Client
	logger logger.ZapLogger
}

func NewProductUseCase(repo product.Repository, cache *cache.RedisClient, es *search.Client, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		logger: log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	unique, err := uc.repo.IsSKUUnique(ctx, input.SKU, "")
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, errors.New("SKU already exists")
	}

	id := uuid.New().String()
	now := time.Now()

	categoryID := &input.CategoryID
	if input.CategoryID == "" {
		categoryID = nil
	}
	supplierID := &input.SupplierID
	if input.SupplierID == "" {
		supplierID = nil
	}

	p := &model.Product{
		BaseModel:   model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		CategoryID:  categoryID,
		SupplierID:  supplierID,
		SKU:         input.SKU,
		Name:        input.Name,
		Description: &input.Description,
		IsActive:    true,
	}

	for _, v := range input.Variants {
		p.Variants = append(p.Variants, model.Variant{
			ID:        uuid.New().String(),
			ProductID: id,
			Size:      v.Size,
			Color:     v.Color,
			Stock:     v.Stock,
			Price:     v.Price,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	go uc.invalidateProductCache(context.Background())
	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	mapping := `{
		"mappings": {
			"properties": {
				"name": { "type": "text" },
				"description": { "type": "text" },
				"sku": { "type": "keyword" },
				"created_at": { "type": "date" }
			}
		}
	}`
	_ = uc.es.CreateIndex(ctx, productsIndex, mapping)

	if err := uc.es.Index(ctx, productsIndex, p.ID, p); err != nil {
		uc.logger.Error("failed to index product", zap.Error(err))
	}
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	cacheKey, err := uc.generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		val, err := uc.cache.Get(ctx, cacheKey)
		if err == nil {
			var result struct {
				Products []model.Product
				Count    int
			}
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Products, result.Count, nil
			}
		}
	}

	if filters.SearchQuery != "" && uc.es != nil {
		q := map[string]interface{}{
			"query": map[string]interface{}{
				"query_string": map[string]interface{}{
					"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
					"fields": []string{"name^3", "sku", "description"},
				},
			},
			"from": (filters.Page - 1) * filters.PageSize,
		}
		if filters.PageSize > 0 {
			q["size"] = filters.PageSize
		}

		res, err := uc.es.Search(ctx, productsIndex, q)
		if err == nil {
			var esProducts []model.Product
			for _, hit := range res.Hits.Hits {
				var p model.Product
				if err := json.Unmarshal(hit.Source, &p); err == nil {
					esProducts = append(esProducts, p)
				}
			}
			return esProducts, res.Hits.Total.Value, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		cacheData := struct {
			Products []model.Product
			Count    int
		}{
			Products: products,
			Count:    count,
		}
		if data, err := json.Marshal(cacheData); err == nil {
			_ = uc.cache.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}

	return products, count, nil
}

func (uc *productUseCase) generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%x", md5.Sum(data)), nil
}

func (uc *productUseCase) invalidateProductCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	keys, err := uc.cache.Client.Keys(ctx, "products:list:*").Result()
	if err == nil && len(keys) > 0 {
		_ = uc.cache.Del(ctx, keys...)
	}
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("product not found")
	}

	if p.SKU != input.SKU {
		unique, err := uc.repo.IsSKUUnique(ctx, input.SKU, p.ID)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, errors.New("SKU already exists")
		}
	}

	p.SKU = input.SKU
	p.Name = input.Name
	p.Description = &input.Description
	p.IsActive = input.IsActive
	if input.CategoryID != "" {
		catID := input.CategoryID
		p.CategoryID = &catID
	} else {
		p.CategoryID = nil
	}
	if input.SupplierID != "" {
		supID := input.SupplierID
		p.SupplierID = &supID
	} else {
		p.SupplierID = nil
	}

	p.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	go uc.invalidateProductCache(context.Background())
	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id string) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return nil // Already deleted
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	go uc.invalidateProductCache(context.Background())
	if uc.es != nil {
		go func() {
			if err := uc.es.Delete(context.Background(), productsIndex, id); err != nil {
				uc.logger.Error("failed to delete product from ES", zap.Error(err))
			}
		}()
	}

	return nil
}

func (uc *productUseCase) AddVariant(ctx context.Context, input *dto.UpsertVariantInput) (*model.Variant, error) {
	p, err := uc.repo.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("product not found")
	}

	now := time.Now()
	v := &model.Variant{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		Size:      input.Size,
		Color:     input.Color,
		Stock:     input.Stock,
		Price:     input.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.UpsertVariant(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (uc *productUseCase) ListVariants(ctx context.Context, productID string) ([]model.Variant, error) {
	return uc.repo.ListVariants(ctx, productID)
}

func (uc *productUseCase) RestockVariant(ctx context.Context, input *dto.RestockInput) (*model.Variant, error) {
	if input.QuantityAdded <= 0 {
		return nil, errors.New("restock quantity must be positive")
	}

	lockKey := fmt.Sprintf("lock:stock:%s", input.ProductID)
	lockValue := uuid.New().String()

	acquired := false
	if uc.cache != nil {
		for i := 0; i < 3; i++ {
			ok, err := uc.cache.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
			if err != nil {
				uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if !acquired {
			return nil, errors.New("system busy, please try again later (lock)")
		}
		defer uc.cache.ReleaseLock(ctx, lockKey, lockValue)
	}

	return uc.repo.AdjustVariantStock(ctx, input.ProductID, input.Selector, input.QuantityAdded, "restock", input.ReferenceType, input.ReferenceID)
}

func (uc *productUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}
