// Package payment creates payment intents with the configured provider.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

// ErrNotConfigured is returned when no provider key is set.
var ErrNotConfigured = errors.New("payments not configured")

// Intent is the provider's handle for a pending payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// Gateway starts a payment for amount minor units in currency.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
}

type stripeGateway struct {
	create func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// NewStripe configures the Stripe client with secretKey.
func NewStripe(secretKey string) Gateway {
	stripe.Key = secretKey
	return &stripeGateway{create: paymentintent.New}
}

func (g *stripeGateway) CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	pi, err := g.create(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// Unconfigured fails every call with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, int64, string) (*Intent, error) {
	return nil, ErrNotConfigured
}
