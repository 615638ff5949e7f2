// Package store defines the persistence port used by the services. The
// memory, postgres and mongo subpackages implement it.
package store

import (
	"context"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/paging"
)

type ProductRepository interface {
	// GetProduct returns a *domain.NotFoundError when id is unknown.
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	// GetProducts returns the subset of ids that exist.
	GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	QueryProducts(ctx context.Context, q catalog.Query) paging.Source[domain.Product]
	ProductFacets(ctx context.Context) (catalog.Facets, error)
	// AdjustStock adds delta to the product's stock without a floor check.
	AdjustStock(ctx context.Context, id int64, delta int) error
	// SaveProduct inserts p when p.ID is zero, otherwise overwrites it.
	SaveProduct(ctx context.Context, p *domain.Product) error
}

type BasketRepository interface {
	// GetBasket loads the basket for buyerID with its products hydrated.
	GetBasket(ctx context.Context, buyerID string) (domain.Basket, error)
	// SaveBasket inserts b when b.ID is zero, otherwise replaces its header
	// and lines. Zero affected rows is reported as *domain.ConflictError.
	SaveBasket(ctx context.Context, b *domain.Basket) error
	DeleteBasket(ctx context.Context, id int64) error
}

type OrderRepository interface {
	// CreateOrder inserts o and its items and assigns o.ID.
	CreateOrder(ctx context.Context, o *domain.Order) error
	ListOrders(ctx context.Context, buyerID string) ([]domain.Order, error)
	GetOrder(ctx context.Context, buyerID string, id int64) (domain.Order, error)
	GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

type UserRepository interface {
	// CreateUser returns domain.ErrDuplicate when the user name or email exists.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByName(ctx context.Context, userName string) (domain.User, error)
	// SaveAddress overwrites the single saved address of userName.
	SaveAddress(ctx context.Context, userName string, addr domain.Address) error
}

// Store is the full persistence port plus a unit of work.
type Store interface {
	ProductRepository
	BasketRepository
	OrderRepository
	UserRepository

	// WithinTx runs fn so that every store call made with the ctx it receives
	// commits together or not at all. Nested calls join the outer unit.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
