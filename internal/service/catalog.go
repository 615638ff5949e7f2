// Package service holds the use cases behind the HTTP handlers. Every
// operation takes the caller's buyer key or user name explicitly.
package service

import (
	"context"
	"log/slog"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/paging"
	"storefront/internal/store"
)

type CatalogService struct {
	products store.ProductRepository
	log      *slog.Logger
}

func NewCatalogService(products store.ProductRepository, log *slog.Logger) *CatalogService {
	return &CatalogService{products: products, log: orDefault(log)}
}

// ListProducts pages the products matching q. Out-of-range paging input is
// normalized first.
func (s *CatalogService) ListProducts(ctx context.Context, q catalog.Query, p paging.Params) (paging.PagedList[domain.Product], error) {
	p = p.Normalize()
	return paging.ToPagedList(ctx, s.products.QueryProducts(ctx, q.Normalized()), p.PageNumber, p.PageSize)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.products.GetProduct(ctx, id)
}

func (s *CatalogService) Filters(ctx context.Context) (catalog.Facets, error) {
	return s.products.ProductFacets(ctx)
}

func orDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
