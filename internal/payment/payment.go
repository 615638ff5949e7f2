// Package payment creates payment intents with the card processor and
// interprets its signed webhook events.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Intent is the processor-side handle a client confirms a card payment with.
type Intent struct {
	ID           string
	ClientSecret string
}

// Processor creates an intent for amount when intentID is empty, otherwise
// updates the existing intent's amount.
type Processor interface {
	CreateOrUpdate(ctx context.Context, intentID string, amount int64) (Intent, error)
}

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Update(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type StripeProcessor struct {
	intents  intentAPI
	currency string
}

func NewStripeProcessor(secretKey, currency string) *StripeProcessor {
	sc := client.New(secretKey, nil)
	return &StripeProcessor{intents: sc.PaymentIntents, currency: normalizeCurrency(currency)}
}

func (p *StripeProcessor) CreateOrUpdate(ctx context.Context, intentID string, amount int64) (Intent, error) {
	params := &stripe.PaymentIntentParams{Amount: stripe.Int64(amount)}
	params.Context = ctx

	var (
		pi  *stripe.PaymentIntent
		err error
	)
	if intentID == "" {
		params.Currency = stripe.String(p.currency)
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
		pi, err = p.intents.New(params)
	} else {
		pi, err = p.intents.Update(intentID, params)
	}
	if err != nil {
		return Intent{}, fmt.Errorf("stripe payment intent: %w", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func normalizeCurrency(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return string(stripe.CurrencyUSD)
	}
	return c
}

// LocalProcessor mints intent ids without calling out. Used in development
// when no processor key is configured.
type LocalProcessor struct{}

func (LocalProcessor) CreateOrUpdate(ctx context.Context, intentID string, amount int64) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, err
	}
	if intentID != "" {
		return Intent{ID: intentID}, nil
	}
	id := "pi_local_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return Intent{ID: id, ClientSecret: id + "_secret"}, nil
}
