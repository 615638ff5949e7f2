package payment

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"storefront/internal/domain"
)

const SignatureHeader = "Stripe-Signature"

// StatusChange is what a webhook event asks us to record on an order.
type StatusChange struct {
	EventID         string
	PaymentIntentID string
	Status          domain.OrderStatus
}

type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Parse verifies the signature header and decodes charge events. ok is false
// for well-formed events that carry no order status change.
func (v *WebhookVerifier) Parse(payload []byte, signature string) (change StatusChange, ok bool, err error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return StatusChange{}, false, domain.NewBadRequestError("invalid webhook signature")
	}

	var status domain.OrderStatus
	switch event.Type {
	case "charge.succeeded":
		status = domain.OrderPaymentReceived
	case "charge.failed":
		status = domain.OrderPaymentFailed
	default:
		return StatusChange{}, false, nil
	}

	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return StatusChange{}, false, domain.NewBadRequestError(fmt.Sprintf("decode charge: %v", err))
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		return StatusChange{}, false, nil
	}
	return StatusChange{EventID: event.ID, PaymentIntentID: charge.PaymentIntent.ID, Status: status}, true, nil
}
