package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
)

func TestStripeGatewayBuildsParams(t *testing.T) {
	var got *stripe.PaymentIntentParams
	g := &stripeGateway{create: func(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		got = p
		return &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil
	}}

	intent, err := g.CreateIntent(context.Background(), 12300, "usd")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	assert.Equal(t, int64(12300), *got.Amount)
	assert.Equal(t, "usd", *got.Currency)
}

func TestStripeGatewayWrapsErrors(t *testing.T) {
	boom := errors.New("card network down")
	g := &stripeGateway{create: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, boom
	}}
	_, err := g.CreateIntent(context.Background(), 100, "usd")
	assert.ErrorIs(t, err, boom)
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.CreateIntent(context.Background(), 100, "usd")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
