package service

import (
	"context"
	"fmt"
	"log/slog"

	"storefront/internal/domain"
	"storefront/internal/store"
)

// BuyerRef is the caller as seen by the basket. ID is empty for a first-time
// anonymous caller. Mint returns a key for a new basket; it must have no side
// effects since a retried unit of work may call it again.
type BuyerRef struct {
	ID   string
	Mint func() string
}

type BasketService struct {
	store store.Store
	log   *slog.Logger
}

func NewBasketService(st store.Store, log *slog.Logger) *BasketService {
	return &BasketService{store: st, log: orDefault(log)}
}

func (s *BasketService) Get(ctx context.Context, buyerID string) (domain.Basket, error) {
	if buyerID == "" {
		return domain.Basket{}, domain.NewNotFoundError("basket", "")
	}
	return s.store.GetBasket(ctx, buyerID)
}

// AddItem adds quantity of productID to the buyer's basket, creating the
// basket when there is none. The returned basket's BuyerID differs from
// buyer.ID when a new key was minted.
func (s *BasketService) AddItem(ctx context.Context, buyer BuyerRef, productID int64, quantity int) (domain.Basket, error) {
	if quantity < 1 {
		return domain.Basket{}, domain.NewValidationError("Invalid quantity").Add("quantity", "must be at least 1")
	}

	var basket domain.Basket
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		product, err := s.store.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		basket, err = s.Get(ctx, buyer.ID)
		switch {
		case domain.IsNotFound(err):
			basket = domain.Basket{BuyerID: buyer.Mint()}
		case err != nil:
			return err
		}

		basket.AddItem(product, quantity)
		if err := s.store.SaveBasket(ctx, &basket); err != nil {
			if domain.IsConflict(err) {
				return domain.NewConflictError("Problem saving item to basket")
			}
			return fmt.Errorf("save basket: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Basket{}, err
	}
	s.log.Debug("basket item added", "buyer_id", basket.BuyerID, "product_id", productID, "quantity", quantity)
	return basket, nil
}

// RemoveItem takes quantity of productID out of the buyer's basket, dropping
// the line when nothing is left.
func (s *BasketService) RemoveItem(ctx context.Context, buyerID string, productID int64, quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("Invalid quantity").Add("quantity", "must be at least 1")
	}
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		basket, err := s.Get(ctx, buyerID)
		if err != nil {
			return err
		}
		if !basket.RemoveItem(productID, quantity) {
			return domain.NewNotFoundError("basket item", fmt.Sprint(productID))
		}
		if err := s.store.SaveBasket(ctx, &basket); err != nil {
			if domain.IsConflict(err) {
				return domain.NewConflictError("Problem removing item from the basket")
			}
			return fmt.Errorf("save basket: %w", err)
		}
		return nil
	})
}
