package service

import (
	"context"
	"fmt"
	"log/slog"

	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/store"
)

// EventParser verifies and decodes a processor webhook delivery.
type EventParser interface {
	Parse(payload []byte, signature string) (payment.StatusChange, bool, error)
}

type PaymentService struct {
	store     store.Store
	processor payment.Processor
	events    EventParser
	fees      checkout.FeePolicy
	log       *slog.Logger
}

func NewPaymentService(st store.Store, processor payment.Processor, events EventParser, fees checkout.FeePolicy, log *slog.Logger) *PaymentService {
	return &PaymentService{store: st, processor: processor, events: events, fees: fees, log: orDefault(log)}
}

// CreateOrUpdateIntent sizes the processor intent to the basket total
// including delivery. An intent already on the basket is updated, never
// replaced. The processor is called before the unit of work opens; the
// transaction only records the intent on a fresh read of the basket.
func (s *PaymentService) CreateOrUpdateIntent(ctx context.Context, buyerID string) (domain.Basket, error) {
	basket, err := s.store.GetBasket(ctx, buyerID)
	if err != nil {
		return domain.Basket{}, err
	}

	amount := s.fees.Total(basket.Subtotal())
	intent, err := s.processor.CreateOrUpdate(ctx, basket.PaymentIntentID, amount)
	if err != nil {
		s.log.Error("payment intent failed", "buyer_id", buyerID, "amount", amount, "error", err)
		return domain.Basket{}, domain.NewBadRequestError("Problem creating payment intent")
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		basket, err = s.store.GetBasket(ctx, buyerID)
		if err != nil {
			return err
		}
		if basket.PaymentIntentID == "" {
			basket.PaymentIntentID = intent.ID
		}
		if basket.ClientSecret == "" {
			basket.ClientSecret = intent.ClientSecret
		}

		if err := s.store.SaveBasket(ctx, &basket); err != nil {
			if domain.IsConflict(err) {
				return domain.NewBadRequestError("Problem updating basket with intent")
			}
			return fmt.Errorf("save basket: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Basket{}, err
	}
	return basket, nil
}

// HandleWebhook applies a verified charge event to the order paid by the
// event's payment intent. Events for unknown intents are acknowledged and
// dropped.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	change, ok, err := s.events.Parse(payload, signature)
	if err != nil {
		s.log.Warn("webhook rejected", "error", err)
		return err
	}
	if !ok {
		return nil
	}

	order, err := s.store.GetOrderByPaymentIntent(ctx, change.PaymentIntentID)
	if domain.IsNotFound(err) {
		s.log.Warn("webhook for unknown payment intent", "event_id", change.EventID, "payment_intent_id", change.PaymentIntentID)
		return nil
	}
	if err != nil {
		return err
	}
	if order.Status == change.Status {
		return nil
	}
	if err := s.store.UpdateOrderStatus(ctx, order.ID, change.Status); err != nil {
		return err
	}
	s.log.Info("order payment status changed", "order_id", order.ID, "from", order.Status.String(), "to", change.Status.String())
	return nil
}
