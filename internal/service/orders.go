package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/store"
)

type OrderService struct {
	store store.Store
	fees  checkout.FeePolicy
	log   *slog.Logger
	now   func() time.Time
}

func NewOrderService(st store.Store, fees checkout.FeePolicy, log *slog.Logger) *OrderService {
	return &OrderService{store: st, fees: fees, log: orDefault(log), now: time.Now}
}

func (s *OrderService) List(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return s.store.ListOrders(ctx, buyerID)
}

func (s *OrderService) Get(ctx context.Context, buyerID string, id int64) (domain.Order, error) {
	return s.store.GetOrder(ctx, buyerID, id)
}

// Create turns the buyer's basket into an order. Stock decrements, the order
// insert, the basket delete and the optional address save share one unit of
// work.
func (s *OrderService) Create(ctx context.Context, buyerID string, shipTo domain.Address, saveAddress bool) (int64, error) {
	var draft checkout.Draft
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		basket, err := s.store.GetBasket(ctx, buyerID)
		if domain.IsNotFound(err) {
			return domain.NewBadRequestError("Could not locate basket")
		}
		if err != nil {
			return err
		}
		if len(basket.Items) == 0 {
			return domain.NewBadRequestError("Basket is empty")
		}

		products, err := s.store.GetProducts(ctx, basket.ProductIDs())
		if err != nil {
			return err
		}
		draft, err = checkout.BuildOrder(buyerID, basket, products, shipTo, s.fees, s.now())
		if err != nil {
			return err
		}

		for _, c := range draft.Stock {
			if err := s.store.AdjustStock(ctx, c.ProductID, c.Delta); err != nil {
				return fmt.Errorf("adjust stock of %d: %w", c.ProductID, err)
			}
		}
		if err := s.store.CreateOrder(ctx, &draft.Order); err != nil {
			return err
		}
		if err := s.store.DeleteBasket(ctx, basket.ID); err != nil {
			return err
		}
		if saveAddress {
			if err := s.store.SaveAddress(ctx, buyerID, shipTo); err != nil {
				return fmt.Errorf("save address: %w", err)
			}
		}
		return nil
	})
	if domain.IsConflict(err) {
		s.log.Error("order not created", "buyer_id", buyerID, "error", err)
		return 0, domain.NewConflictError("Problem creating order")
	}
	if err != nil {
		return 0, err
	}

	for _, c := range draft.Oversold() {
		s.log.Warn("stock below zero", "product_id", c.ProductID, "remaining", c.Remaining, "order_id", draft.Order.ID)
	}
	s.log.Info("order created", "order_id", draft.Order.ID, "buyer_id", buyerID,
		"subtotal", draft.Order.Subtotal, "delivery_fee", draft.Order.DeliveryFee)
	return draft.Order.ID, nil
}
